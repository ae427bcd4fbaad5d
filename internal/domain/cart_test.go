package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productJSON = `{
	"id": 7,
	"title": "Radio",
	"slug": "radio",
	"price": "19.90",
	"image": {"file": {"url": "https://img/7.jpg"}},
	"colors": ["black", "red"],
	"mainProp": {"code": "power"}
}`

func TestProduct_UnmarshalKeepsUnknownFields(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(productJSON), &p))

	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "19.9", p.Price.String())
	assert.Equal(t, "https://img/7.jpg", p.Image.File.URL)
	require.Len(t, p.Attributes, 2)
	assert.JSONEq(t, `["black", "red"]`, string(p.Attributes["colors"]))
	assert.JSONEq(t, `{"code": "power"}`, string(p.Attributes["mainProp"]))
}

func TestProduct_UnmarshalWithoutExtras(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1, "title": "A", "price": 1}`), &p))

	assert.Nil(t, p.Attributes)
}

func TestProductView_MarshalFlattensImageAndKeepsAttributes(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(productJSON), &p))

	data, err := json.Marshal(p.View())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": 7,
		"title": "Radio",
		"slug": "radio",
		"price": "19.9",
		"image": "https://img/7.jpg",
		"colors": ["black", "red"],
		"mainProp": {"code": "power"}
	}`, string(data))
}

func TestProductView_KnownFieldsWin(t *testing.T) {
	v := ProductView{
		ID:         1,
		Title:      "A",
		Image:      "https://img/1.jpg",
		Attributes: map[string]json.RawMessage{"image": json.RawMessage(`{"file": {}}`)},
	}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "https://img/1.jpg", out["image"])
}

func TestProduct_MarshalRoundTrip(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(productJSON), &p))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var again Product
	require.NoError(t, json.Unmarshal(data, &again))
	assert.JSONEq(t, `["black", "red"]`, string(again.Attributes["colors"]))
	assert.Equal(t, p.Image, again.Image)
}
