// Package security はブラウザに返すコンテンツの安全性を確保する機能を提供する。
//
// 質問・回答の本文はユーザーが入力したプレーンテキストであり、バックエンドに
// 保存されている値は一切書き換えない。描画用のHTMLは別フィールド（contentHtml）に
// 生成し、エスケープ後にbluemondayの許可リストを最終ゲートとして通す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/knowledgeout/internal/model"
)

// Sanitizer は本文から描画用の安全なHTMLを生成する。
type Sanitizer interface {
	// RenderHTML はプレーンテキストをエスケープし、改行を<br>に変換したHTMLを返す。
	// 入力の文字（<, >, & など）は表示上そのまま残る。
	RenderHTML(text string) string
}

// ContentSanitizer はbluemondayのポリシーでSanitizerを実装する。
// ポリシーは生成後に変更しないため、複数のgoroutineから同時に使える。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
// RenderHTMLが生成するタグはbrだけなので、ポリシーもbr以外をすべて除去する。
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("br")
	return &ContentSanitizer{policy: p}
}

var newlineReplacer = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// RenderHTML は本文を描画用HTMLに変換する。
func (s *ContentSanitizer) RenderHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := newlineReplacer.Replace(html.EscapeString(text))
	return s.policy.Sanitize(escaped)
}

// RenderQuestion は質問と含まれる回答にcontentHtmlを設定する。
// Title と Content は変更しない。
func RenderQuestion(s Sanitizer, q *model.Question) {
	if q == nil {
		return
	}
	q.ContentHTML = s.RenderHTML(q.Content)
	RenderAnswers(s, q.Answers)
}

// RenderQuestions は質問一覧にcontentHtmlを設定する。
func RenderQuestions(s Sanitizer, qs []model.Question) {
	for i := range qs {
		RenderQuestion(s, &qs[i])
	}
}

// RenderAnswers は回答一覧にcontentHtmlを設定する。
func RenderAnswers(s Sanitizer, answers []model.Answer) {
	for i := range answers {
		answers[i].ContentHTML = s.RenderHTML(answers[i].Content)
	}
}

// RenderMyAnswers はマイページの回答一覧にcontentHtmlを設定する。
func RenderMyAnswers(s Sanitizer, answers []model.MyAnswer) {
	for i := range answers {
		answers[i].ContentHTML = s.RenderHTML(answers[i].Content)
	}
}
