package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, text string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(FormattedText(text))))
	require.NoError(t, err)
	return doc
}

func TestFormattedTextStructure(t *testing.T) {
	doc := parse(t, "### Nearby tips\n- Visit **Vondelpark** today\n* Take the ferry\n\nEnjoy the **city** and **food**.")

	assert.Equal(t, 1, doc.Find("div.ai-result-content").Length())
	assert.Equal(t, "Nearby tips", doc.Find("h3").Text())

	items := doc.Find("li.ml-4")
	require.Equal(t, 2, items.Length())
	assert.Equal(t, "Visit Vondelpark today", items.First().Text())
	assert.Equal(t, "Vondelpark", items.First().Find("strong").Text())
	assert.Equal(t, "Take the ferry", items.Last().Text())

	assert.Equal(t, 1, doc.Find("br").Length())
	p := doc.Find("p")
	assert.Equal(t, "Enjoy the city and food.", p.Text())
	assert.Equal(t, 2, p.Find("strong").Length())
}

func TestFormattedTextEscapesMarkup(t *testing.T) {
	doc := parse(t, "<script>alert(1)</script>\n- **<b>x</b>**")

	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Equal(t, 0, doc.Find("b").Length())
	assert.Equal(t, "<script>alert(1)</script>", doc.Find("p").Text())
	assert.Equal(t, "<b>x</b>", doc.Find("li strong").Text())
}

func TestFormattedTextUnclosedBoldIsLiteral(t *testing.T) {
	doc := parse(t, "a **b")
	assert.Equal(t, 0, doc.Find("strong").Length())
	assert.Equal(t, "a **b", doc.Find("p").Text())
}

func TestFormattedTextHeaderWithoutSpace(t *testing.T) {
	doc := parse(t, "###Rainy day")
	assert.Equal(t, "Rainy day", doc.Find("h3").Text())
}
