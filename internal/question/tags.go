package question

import "regexp"

var tagPattern = regexp.MustCompile(`#(\S+)`)

// ExtractTags は本文から「#タグ名」形式のタグを出現順に抽出する。
func ExtractTags(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}
