package recovery

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-labs/docextract/internal/model"
)

func TestRecoverDirectJSON(t *testing.T) {
	r := &Recoverer{}
	rec := r.Recover(`{"product_name": "Hydra Cream", "batch": 42}`, 1)

	assert.False(t, rec.Failed())
	assert.Equal(t, "direct_json", rec.Method)
	assert.Equal(t, "Hydra Cream", rec.Fields["product_name"].Text)
	assert.Equal(t, "42", rec.Fields["batch"].Text)
	assert.Equal(t, 1, rec.SegmentOrdinal)
}

func TestRecoverFencedJSON(t *testing.T) {
	r := &Recoverer{}
	raw := "Here is the extraction:\n```json\n{\"product_name\": \"Gel\"}\n```\nDone."
	rec := r.Recover(raw, 2)

	assert.False(t, rec.Failed())
	assert.Equal(t, "fenced_json", rec.Method)
	assert.Equal(t, "Gel", rec.Fields["product_name"].Text)
	assert.Equal(t, raw, rec.RawText)
}

func TestRecoverBareFence(t *testing.T) {
	r := &Recoverer{}
	rec := r.Recover("```\n{\"a\": \"b\"}\n```", 1)

	assert.False(t, rec.Failed())
	assert.Equal(t, "fenced", rec.Method)
	assert.Equal(t, "b", rec.Fields["a"].Text)
}

func TestRecoverEmbeddedJSON(t *testing.T) {
	r := &Recoverer{}
	raw := `Sure! The answer is {"product_name": "Serum", "meta": {"grade": "A"}} as requested.`
	rec := r.Recover(raw, 1)

	assert.False(t, rec.Failed())
	assert.Equal(t, "embedded_json", rec.Method)
	assert.Equal(t, "Serum", rec.Fields["product_name"].Text)
	require.Equal(t, model.KindObject, rec.Fields["meta"].Kind)
	assert.Equal(t, "A", rec.Fields["meta"].Object["grade"].Text)
}

func TestRecoverEchoedDocument(t *testing.T) {
	r := &Recoverer{}
	rec := r.Recover("SAFETY DATA SHEET\nSection 1: Identification\n...", 3)

	assert.True(t, rec.Failed())
	assert.Equal(t, model.FailureEchoedDocument, rec.FailureReason)
	assert.Empty(t, rec.Fields)
}

func TestRecoverLongProseWithoutJSON(t *testing.T) {
	r := &Recoverer{}
	rec := r.Recover(strings.Repeat("plain prose with no answer markers at all ", 200), 1)

	assert.True(t, rec.Failed())
	assert.Equal(t, model.FailureEchoedDocument, rec.FailureReason)
}

func TestRecoverFileOutputPDF(t *testing.T) {
	payload := append([]byte("%PDF-1.7 "), make([]byte, 600)...)
	encoded := base64.StdEncoding.EncodeToString(payload)

	r := &Recoverer{}
	rec := r.Recover("data:application/pdf;base64,"+encoded, 1)

	assert.True(t, rec.Failed())
	assert.Equal(t, model.FailureFileOutputDetected, rec.FailureReason)
	require.NotNil(t, rec.File)
	assert.Equal(t, "pdf", rec.File.FileType)
	assert.Equal(t, len(payload), rec.File.Size)
}

func TestRecoverDegenerateShapeRepaired(t *testing.T) {
	r := &Recoverer{KnownFields: []string{"product_name", "manufacturer"}}
	raw := `{"Please extract the following fields from the document and return them as JSON": ""}`
	rec := r.Recover(raw, 1)

	assert.False(t, rec.Failed())
	assert.Equal(t, "degenerate_repair", rec.Method)
	assert.True(t, rec.LowConfidence)
	assert.Contains(t, rec.Fields, "product_name")
	assert.Contains(t, rec.Fields, "manufacturer")
	assert.True(t, rec.Fields["product_name"].IsEmpty())
}

func TestRecoverLabelScrape(t *testing.T) {
	r := &Recoverer{}
	raw := "I could not produce JSON.\nProduct Name: Aqua Lotion\nManufacturer: Veridian Labs\n"
	rec := r.Recover(raw, 1)

	assert.False(t, rec.Failed())
	assert.Equal(t, "label_scrape", rec.Method)
	assert.True(t, rec.LowConfidence)
	assert.Equal(t, "Aqua Lotion", rec.Fields["product_name"].Text)
	assert.Equal(t, "Veridian Labs", rec.Fields["manufacturer"].Text)
}

func TestRecoverUnparsable(t *testing.T) {
	r := &Recoverer{}
	raw := "no structure here"
	rec := r.Recover(raw, 4)

	assert.True(t, rec.Failed())
	assert.Equal(t, model.FailureUnparsable, rec.FailureReason)
	assert.Equal(t, raw, rec.RawText)
	assert.Equal(t, 4, rec.SegmentOrdinal)
}

func TestSniffFileType(t *testing.T) {
	assert.Equal(t, "pdf", sniffFileType([]byte("%PDF-1.4 rest")))
	assert.Equal(t, "docx", sniffFileType([]byte("PK\x03\x04 word/document.xml")))
	assert.Equal(t, "zip", sniffFileType([]byte("PK\x03\x04 something else")))
	assert.Equal(t, "ole", sniffFileType([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}))
	assert.Equal(t, "", sniffFileType([]byte("plain text")))
}
