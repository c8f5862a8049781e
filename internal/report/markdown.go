package report

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// ToMarkdown converts a rendered report to CommonMark for terminal output.
func ToMarkdown(report string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
	md, err := conv.ConvertString(report)
	if err != nil {
		return "", fmt.Errorf("converting report to markdown: %w", err)
	}
	return md, nil
}
