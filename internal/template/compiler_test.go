package template

import (
	"context"
	"strings"
	"testing"

	"messaging-core/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver counts handshake invocations so tests can prove validation
// failures happen before any network call.
type fakeResolver struct {
	handle string
	err    error
	calls  int
}

func (f *fakeResolver) ObtainRemoteHandle(ctx context.Context, sourceURL, mimeType string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.handle, nil
}

func TestParseDefinition_OrderedList(t *testing.T) {
	raw := `[
		{"type": "HEADER", "format": "TEXT", "text": "Hello {{name}}"},
		{"type": "BODY", "text": "Body text"},
		{"type": "FOOTER", "text": "Bye"},
		{"type": "BUTTONS", "buttons": [
			{"type": "URL", "text": "Open", "url": "https://example.com"},
			{"type": "PHONE_NUMBER", "text": "Call", "phone_number": "+3933312345"},
			{"type": "something_else", "text": "Reply"}
		]}
	]`

	def, err := ParseDefinition(raw)
	require.NoError(t, err)

	require.NotNil(t, def.Header)
	assert.Equal(t, "TEXT", def.Header.Format)
	assert.Equal(t, "Body text", def.Body)
	assert.Equal(t, "Bye", def.Footer)
	require.Len(t, def.Buttons, 3)
	assert.Equal(t, "URL", def.Buttons[0].Type)
	assert.Equal(t, "PHONE_NUMBER", def.Buttons[1].Type)
	assert.Equal(t, "QUICK_REPLY", def.Buttons[2].Type, "unknown button types fall back to quick reply")
}

func TestParseDefinition_KeyedObject(t *testing.T) {
	raw := `{
		"header": {"format": "IMAGE"},
		"body": {"text": "Keyed body"},
		"footer": {"text": "Footer"},
		"buttons": [{"type": "QUICK_REPLY", "text": "Ok"}]
	}`

	def, err := ParseDefinition(raw)
	require.NoError(t, err)

	require.NotNil(t, def.Header)
	assert.Equal(t, "IMAGE", def.Header.Format)
	assert.Equal(t, "Keyed body", def.Body)
	assert.Equal(t, "Footer", def.Footer)
	assert.Len(t, def.Buttons, 1)
}

func TestParseDefinition_BothShapesCompileAlike(t *testing.T) {
	list := `[{"type": "BODY", "text": "Same {{name}}"}]`
	keyed := `{"body": {"text": "Same {{name}}"}}`

	compiler := NewCompiler(&fakeResolver{})

	fromList, err := compiler.Compile(context.Background(), &models.Template{Components: list})
	require.NoError(t, err)
	fromKeyed, err := compiler.Compile(context.Background(), &models.Template{Components: keyed})
	require.NoError(t, err)

	assert.Equal(t, fromList, fromKeyed)
}

func TestCompile_TextHeaderWithVariables(t *testing.T) {
	resolver := &fakeResolver{}
	compiler := NewCompiler(resolver)

	tpl := &models.Template{Components: `[
		{"type": "HEADER", "format": "TEXT", "text": "Hi {{name}}"},
		{"type": "BODY", "text": "Order {{numero}} ready"}
	]`}

	components, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err)
	require.Len(t, components, 2)

	header := components[0]
	assert.Equal(t, "HEADER", header.Type)
	assert.Equal(t, "Hi {{1}}", header.Text)
	require.NotNil(t, header.Example)
	assert.Equal(t, []string{"Mario Rossi"}, header.Example.HeaderText)

	body := components[1]
	assert.Equal(t, "Order {{1}} ready", body.Text)
	require.NotNil(t, body.Example)
	assert.Equal(t, [][]string{{"[numero]"}}, body.Example.BodyText)

	assert.Zero(t, resolver.calls, "text headers never touch the upload handshake")
}

func TestCompile_TextHeaderWithoutVariablesHasNoExample(t *testing.T) {
	compiler := NewCompiler(&fakeResolver{})

	tpl := &models.Template{Components: `[
		{"type": "HEADER", "format": "TEXT", "text": "Welcome"},
		{"type": "BODY", "text": "Plain body"}
	]`}

	components, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err)
	assert.Nil(t, components[0].Example)
	assert.Nil(t, components[1].Example)
}

func TestCompile_MediaHeaderAttachesHandle(t *testing.T) {
	resolver := &fakeResolver{handle: "4::handle=="}
	compiler := NewCompiler(resolver)

	tpl := &models.Template{
		Components:     `[{"type": "HEADER", "format": "IMAGE"}, {"type": "BODY", "text": "Body"}]`,
		HeaderMediaURL: "http://localhost:8080/media/pic.png",
	}

	components, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err)

	header := components[0]
	assert.Equal(t, "IMAGE", header.Format)
	require.NotNil(t, header.Example)
	assert.Equal(t, []string{"4::handle=="}, header.Example.HeaderHandle)
	assert.Equal(t, 1, resolver.calls, "a fresh handle per compile, never cached")
}

func TestCompile_MediaHeaderWithoutMediaFailsBeforeNetwork(t *testing.T) {
	resolver := &fakeResolver{handle: "unused"}
	compiler := NewCompiler(resolver)

	tpl := &models.Template{Components: `[{"type": "HEADER", "format": "IMAGE"}, {"type": "BODY", "text": "Body"}]`}

	_, err := compiler.Compile(context.Background(), tpl)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "HEADER", valErr.Component)
	assert.Zero(t, resolver.calls, "no upload attempted for an invalid template")
}

func TestCompile_EmptyBodyRejected(t *testing.T) {
	compiler := NewCompiler(&fakeResolver{})

	_, err := compiler.Compile(context.Background(), &models.Template{Components: `[{"type": "FOOTER", "text": "Bye"}]`})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "BODY", valErr.Component)
}

func TestCompile_ButtonTextBoundary(t *testing.T) {
	compiler := NewCompiler(&fakeResolver{})

	atLimit := strings.Repeat("a", 25)
	tpl := &models.Template{Components: `{
		"body": {"text": "Body"},
		"buttons": [{"type": "QUICK_REPLY", "text": "` + atLimit + `"}]
	}`}

	components, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err, "25 characters is accepted")
	assert.Equal(t, atLimit, components[1].Buttons[0].Text)

	overLimit := strings.Repeat("a", 26)
	tpl.Components = `{
		"body": {"text": "Body"},
		"buttons": [{"type": "QUICK_REPLY", "text": "ok"}, {"type": "QUICK_REPLY", "text": "` + overLimit + `"}]
	}`

	_, err = compiler.Compile(context.Background(), tpl)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "BUTTONS[1]", valErr.Component, "the offending button is named")
}

func TestCompile_ButtonTextLimitCountsRunes(t *testing.T) {
	compiler := NewCompiler(&fakeResolver{})

	// 25 characters but more than 25 bytes.
	accented := strings.Repeat("è", 25)
	tpl := &models.Template{Components: `{
		"body": {"text": "Body"},
		"buttons": [{"type": "QUICK_REPLY", "text": "` + accented + `"}]
	}`}

	_, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err, "the limit is characters, not bytes")

	tpl.Components = `{
		"body": {"text": "Body"},
		"buttons": [{"type": "QUICK_REPLY", "text": "` + accented + `x"}]
	}`
	_, err = compiler.Compile(context.Background(), tpl)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestCompile_ButtonMapping(t *testing.T) {
	compiler := NewCompiler(&fakeResolver{})

	tpl := &models.Template{Components: `{
		"body": {"text": "Body"},
		"buttons": [
			{"type": "URL", "text": "Open", "url": "https://example.com/x"},
			{"type": "PHONE_NUMBER", "text": "Call", "phone_number": "+390612345"}
		]
	}`}

	components, err := compiler.Compile(context.Background(), tpl)
	require.NoError(t, err)

	buttons := components[1]
	assert.Equal(t, "BUTTONS", buttons.Type)
	require.Len(t, buttons.Buttons, 2)
	assert.Equal(t, "https://example.com/x", buttons.Buttons[0].URL)
	assert.Equal(t, "+390612345", buttons.Buttons[1].PhoneNumber)
}
