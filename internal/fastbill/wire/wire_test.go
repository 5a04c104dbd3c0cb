package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEscapesText(t *testing.T) {
	req := NewRequest("customer.create").WithData(
		Text("LAST_NAME", `Smith & <Sons> "Ltd"`),
		OptionalText("VAT_ID", "  "),
		Int("CUSTOMER_ID", 12),
	)

	raw, err := req.Encode()
	require.NoError(t, err)

	assert.Equal(t,
		`<?xml version="1.0" encoding="utf-8"?><FBAPI><SERVICE>customer.create</SERVICE><DATA>`+
			`<LAST_NAME>Smith &amp; &lt;Sons&gt; &#34;Ltd&#34;</LAST_NAME><CUSTOMER_ID>12</CUSTOMER_ID></DATA></FBAPI>`,
		string(raw))
}

func TestEncodedRequestParsesBackToSameStructure(t *testing.T) {
	req := NewRequest("invoice.create").WithData(
		Int("CUSTOMER_ID", 7),
		Elem("ITEMS",
			Elem("ITEM", Text("DESCRIPTION", "Book"), Text("UNIT_PRICE", "100.00")),
			Elem("ITEM", Text("DESCRIPTION", "Pen"), Text("UNIT_PRICE", "2.50")),
		),
	)
	raw, err := req.Encode()
	require.NoError(t, err)

	tree, err := ParseTree(raw)
	require.NoError(t, err)
	assert.Equal(t, "FBAPI", tree.Name)
	assert.Equal(t, "invoice.create", tree.Value("SERVICE"))
	assert.Equal(t, "7", tree.Value("DATA", "CUSTOMER_ID"))

	items := tree.Find("DATA", "ITEMS").All("ITEM")
	require.Len(t, items, 2)
	assert.Equal(t, "Pen", items[1].Value("DESCRIPTION"))
}

func TestEmptyFilterIsEmitted(t *testing.T) {
	raw, err := NewRequest("template.get").WithFilter().Encode()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<FILTER></FILTER>")
	assert.NotContains(t, string(raw), "<DATA>")
}

func TestParseSuccess(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="utf-8"?>
<FBAPI><REQUEST><SERVICE>invoice.create</SERVICE></REQUEST>
<RESPONSE><STATUS>success</STATUS><INVOICE_ID>  4711 </INVOICE_ID></RESPONSE></FBAPI>`)

	result, err := Parse(raw)
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, "4711", result.Payload.Value("INVOICE_ID"))
}

func TestParseErrorEnvelope(t *testing.T) {
	cases := map[string]string{
		"under response": `<FBAPI><RESPONSE><ERRORS><ERROR>Customer not found</ERROR><ERROR>Second</ERROR></ERRORS></RESPONSE></FBAPI>`,
		"at root":        `<FBAPI><ERRORS><ERROR>Customer not found</ERROR><ERROR>Second</ERROR></ERRORS></FBAPI>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := Parse([]byte(body))
			require.NoError(t, err)
			assert.True(t, result.Failed())
			assert.Equal(t, "Customer not found; Second", result.Message())
			assert.Nil(t, result.Payload)
		})
	}
}

func TestParseEmptyErrorsElement(t *testing.T) {
	result, err := Parse([]byte(`<FBAPI><RESPONSE><ERRORS/></RESPONSE></FBAPI>`))
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, "unknown error", result.Message())
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":     "   ",
		"truncated": `<FBAPI><RESPONSE><INVOICE_ID>1</INVOICE_ID>`,
		"html":      `<html><body>502 Bad Gateway</body></html>`,
		"mismatch":  `<FBAPI><RESPONSE></FBAPI></RESPONSE>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestNodeHelpersAreNilSafe(t *testing.T) {
	var n *Node
	assert.Nil(t, n.Child("X"))
	assert.Nil(t, n.Find("A", "B"))
	assert.Empty(t, n.Value("A"))
	assert.Empty(t, n.All("A"))
}
