package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pageWithLines(lines int) string {
	page := new(strings.Builder)
	page.WriteString(`<div id="page0" style="position:relative;width:612.0pt;height:792.0pt;background-color:white">` + "\n")
	for i := 0; i < lines; i++ {
		fmt.Fprintf(page,
			`<p style="position:absolute;white-space:pre;margin:0;padding:0;top:%d.0pt;left:85.0pt;line-height:12.0pt">`+
				`<span style="font-family:LiberationSerif,serif;font-size:12.0pt">This is an ordinary line of body text on the page.</span></p>`+"\n",
			72+i*14)
	}
	page.WriteString("</div>")
	return page.String()
}

func TestCoverageFromPagesEmptyDocument(t *testing.T) {
	assert.Equal(t, 0.0, coverageFromPages(nil))
	assert.Equal(t, 0.0, coverageFromPages([]string{"<div>no geometry here</div>"}))
}

func TestCoverageFromPagesRatioInRange(t *testing.T) {
	ratio := coverageFromPages([]string{pageWithLines(10)})

	assert.Greater(t, ratio, 0.0)
	assert.Less(t, ratio, 1.0)
}

func TestCoverageGrowsWithTextDensity(t *testing.T) {
	sparse := coverageFromPages([]string{pageWithLines(2)})
	dense := coverageFromPages([]string{pageWithLines(40)})

	assert.Greater(t, dense, sparse)
}

func TestCoverageBlankPageLowersRatio(t *testing.T) {
	blank := `<div id="page1" style="position:relative;width:612.0pt;height:792.0pt;background-color:white">` + "\n</div>"

	withBlank := coverageFromPages([]string{pageWithLines(10), blank})
	without := coverageFromPages([]string{pageWithLines(10)})

	assert.Less(t, withBlank, without)
}

func TestCoverageClippedToOne(t *testing.T) {
	tiny := strings.Replace(pageWithLines(40), "width:612.0pt;height:792.0pt", "width:20.0pt;height:20.0pt", 1)

	assert.Equal(t, 1.0, coverageFromPages([]string{tiny}))
}

func TestTextCoverageUnreadableFileIsNeutral(t *testing.T) {
	assert.Equal(t, 0.5, TextCoverage(filepath.Join(t.TempDir(), "does-not-exist.pdf")))
}
