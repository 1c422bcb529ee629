// Command knowledgeout はknowledgeout Q&AボードのBFFサーバーを起動する。
//
// 使い方:
//
//	knowledgeout [serve]      BFFサーバーを起動する（既定）
//	knowledgeout healthcheck  ローカルの/healthを確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/knowledgeout/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
