package step

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSuccess(t *testing.T) {
	body := []byte(`{"result":"success","step":{
		"name":"step2","has_back_step":true,"has_next_step":false,"can_start_over":true,
		"has_choices":true,"student_choice":"kill","html":"<p>A dragon</p>","markdown":"A dragon",
		"choices":[{"value":"kill","label":"Kill dragon"},{"value":"leave","label":"Leave"}]}}`)

	out := Decode(OpFetchCurrent, body)
	require.Equal(t, Succeeded, out.Kind)
	assert.Nil(t, out.Err())

	s := out.State
	assert.Equal(t, "step2", s.Name)
	assert.True(t, s.HasBackStep)
	assert.False(t, s.HasNextStep)
	assert.True(t, s.CanStartOver)
	assert.True(t, s.HasChoices)
	assert.Equal(t, "kill", s.StudentChoice)
	assert.Equal(t, "<p>A dragon</p>", s.Content.HTML)
	require.Len(t, s.Content.Choices, 2)
	assert.Equal(t, Choice{Value: "leave", Label: "Leave"}, s.Content.Choices[1])
}

func TestDecodeServerError(t *testing.T) {
	out := Decode(OpFetchNext, []byte(`{"result":"error","message":"invalid choice"}`))
	require.Equal(t, Failed, out.Kind)

	ff := out.Err()
	require.NotNil(t, ff)
	assert.Equal(t, OpFetchNext, ff.Op)
	assert.Equal(t, ServerError, ff.Origin)
	assert.Equal(t, "invalid choice", ff.Message)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `<html>`, "malformed response"},
		{"missing step", `{"result":"success"}`, "success response without step"},
		{"unknown result", `{"result":"maybe"}`, "unexpected result: maybe"},
		{"empty error message", `{"result":"error"}`, "server reported an error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Decode(OpFetchPrevious, []byte(tt.body))
			require.Equal(t, Failed, out.Kind)
			assert.Equal(t, tt.want, out.Err().Message)
		})
	}
}

func TestZeroOutcomeIsFailure(t *testing.T) {
	var out Outcome
	assert.Equal(t, Failed, out.Kind)
	require.NotNil(t, out.Err())
}

func TestTransportFailureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	ff := NewTransportFailure(OpRestart, cause)

	assert.Equal(t, TransportFailure, ff.Origin)
	assert.ErrorIs(t, ff, cause)
	assert.Contains(t, ff.Error(), "fetch-restart failed (transport)")

	got, ok := AsFetchFailed(ff)
	require.True(t, ok)
	assert.Same(t, ff, got)
}

func TestStateHelpers(t *testing.T) {
	final := State{Name: "end"}
	assert.True(t, final.IsFinal())
	assert.False(t, State{HasChoices: true}.IsFinal())

	s := State{HasChoices: true, Content: Content{Choices: []Choice{{Value: "yes"}}}}
	assert.True(t, s.HasOption("yes"))
	assert.False(t, s.HasOption("no"))
	assert.True(t, State{HasChoices: true}.HasOption("anything"))
}
