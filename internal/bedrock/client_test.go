package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  []byte
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

func TestInvokeJSON(t *testing.T) {
	inv := &fakeInvoker{body: []byte(`{"answer":"42"}`)}

	var out struct {
		Answer string `json:"answer"`
	}
	err := InvokeJSON(context.Background(), inv, "model-x", map[string]string{"q": "life"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "42", out.Answer)
	require.NotNil(t, inv.input)
	assert.Equal(t, "model-x", *inv.input.ModelId)
	assert.Equal(t, "application/json", *inv.input.ContentType)

	var sent map[string]string
	require.NoError(t, json.Unmarshal(inv.input.Body, &sent))
	assert.Equal(t, "life", sent["q"])
}

func TestInvokeJSON_Errors(t *testing.T) {
	var out map[string]any

	err := InvokeJSON(context.Background(), &fakeInvoker{err: errors.New("throttled")}, "m", struct{}{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	err = InvokeJSON(context.Background(), &fakeInvoker{body: []byte("not json")}, "m", struct{}{}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode m response")
}
