package definition_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enetx/pfsm"
	"github.com/enetx/pfsm/definition"
)

const sendStream = `# send side of a stream
machine SendStream
states Ready Send DataSent DataRecvd ResetSent ResetRecvd
is terminal = DataRecvd | ResetRecvd

// The application queued data.
// The first STREAM frame opens the stream.
on_send_stream { Ready => Send }
on_send_fin { Send => DataSent }
on_recv_all_acks { DataSent => DataRecvd }
on_send_reset {
    Ready | Send | DataSent => ResetSent,
}
on_recv_reset_ack { ResetSent => ResetRecvd }
`

const sendStreamYAML = `machine: SendStream
states: [Ready, Send, DataSent, DataRecvd, ResetSent, ResetRecvd]
events:
  - name: on_send_stream
    doc: |-
      The application queued data.
      The first STREAM frame opens the stream.
    clauses:
      - from: [Ready]
        to: Send
  - name: on_send_fin
    clauses:
      - from: [Send]
        to: DataSent
  - name: on_recv_all_acks
    clauses:
      - from: [DataSent]
        to: DataRecvd
  - name: on_send_reset
    clauses:
      - from: [Ready, Send, DataSent]
        to: ResetSent
  - name: on_recv_reset_ack
    clauses:
      - from: [ResetSent]
        to: ResetRecvd
predicates:
  - name: terminal
    states: [DataRecvd, ResetRecvd]
`

func TestParse(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader(sendStream))
	require.NoError(t, err)

	assert.Equal(t, "SendStream", doc.Machine)
	assert.Equal(t, []string{"Ready", "Send", "DataSent", "DataRecvd", "ResetSent", "ResetRecvd"}, doc.States)
	require.Len(t, doc.Events, 5)

	first := doc.Events[0]
	assert.Equal(t, "on_send_stream", first.Name)
	assert.Equal(t, "The application queued data.\nThe first STREAM frame opens the stream.", first.Doc)
	assert.Equal(t, []definition.Clause{{From: []string{"Ready"}, To: "Send"}}, first.Clauses)

	reset := doc.Events[3]
	assert.Empty(t, reset.Doc)
	assert.Equal(t, []definition.Clause{{From: []string{"Ready", "Send", "DataSent"}, To: "ResetSent"}}, reset.Clauses)

	assert.Equal(t, []definition.Predicate{{Name: "terminal", States: []string{"DataRecvd", "ResetRecvd"}}}, doc.Predicates)
}

func TestParse_MultiClause(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader(`
machine Conn
open { Idle => Open }
close {
    Open => Closing,
    Closing => Closed
}
`))
	require.NoError(t, err)
	require.Len(t, doc.Events, 2)
	assert.Equal(t, []definition.Clause{
		{From: []string{"Open"}, To: "Closing"},
		{From: []string{"Closing"}, To: "Closed"},
	}, doc.Events[1].Clauses)
	assert.Equal(t, []string{"Idle", "Open", "Closing", "Closed"}, doc.StateNames())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"missing machine", "open { Idle => Open }\n", 2},
		{"missing arrow", "machine Conn\nopen { Idle Open }\n", 2},
		{"missing brace", "machine Conn\nopen Idle => Open\n", 2},
		{"bad character", "machine Conn\nopen { Idle => Open; }\n", 2},
		{"unterminated event", "machine Conn\nclose {\n  Open => Closed,\n", 4},
		{"machine twice", "machine Conn\nmachine Stream\n", 2},
		{"predicate without states", "machine Conn\nis closed =\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.Parse(strings.NewReader(tt.src))
			require.Error(t, err)

			var syntax *definition.SyntaxError
			require.True(t, errors.As(err, &syntax))
			assert.Equal(t, tt.line, syntax.Line)
		})
	}
}

func TestParse_EmptyEventFailsAtBuild(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader("machine Conn\nopen {}\n"))
	require.NoError(t, err)

	_, err = doc.Build()

	var malformed *pfsm.ErrMalformed
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "open", malformed.Event)
}

func TestParseYAML_MatchesText(t *testing.T) {
	fromText, err := definition.Parse(strings.NewReader(sendStream))
	require.NoError(t, err)

	fromYAML, err := definition.ParseYAML(strings.NewReader(sendStreamYAML))
	require.NoError(t, err)

	assert.Equal(t, fromText, fromYAML)
}

func TestParseYAML_Errors(t *testing.T) {
	_, err := definition.ParseYAML(strings.NewReader(""))
	require.Error(t, err)

	_, err = definition.ParseYAML(strings.NewReader("states: [A]\n"))
	require.ErrorContains(t, err, "missing machine")

	_, err = definition.ParseYAML(strings.NewReader("machine: A\ntimers: []\n"))
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader(sendStream))
	require.NoError(t, err)

	again, err := definition.Parse(strings.NewReader(doc.Text()))
	require.NoError(t, err)
	assert.Equal(t, doc, again)

	out, err := doc.YAML()
	require.NoError(t, err)

	fromYAML, err := definition.ParseYAML(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, doc, fromYAML)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "send.fsm")
	require.NoError(t, os.WriteFile(textPath, []byte(sendStream), 0o644))

	yamlPath := filepath.Join(dir, "send.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sendStreamYAML), 0o644))

	fromText, err := definition.Load(textPath)
	require.NoError(t, err)

	fromYAML, err := definition.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromText, fromYAML)

	_, err = definition.Load(filepath.Join(dir, "missing.fsm"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	doc := &definition.Document{Machine: "Conn", Events: []definition.Event{
		{Name: "open", Clauses: []definition.Clause{{From: []string{"Idle"}, To: "Open"}}},
	}}
	require.NoError(t, doc.Validate())

	doc.Events[0].Clauses[0].To = "Open Now"
	require.ErrorContains(t, doc.Validate(), `state "Open Now" is not an identifier`)

	doc.Machine = "1conn"
	require.Error(t, doc.Validate())
}

func TestBuild(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader(sendStream))
	require.NoError(t, err)

	m, err := doc.Build()
	require.NoError(t, err)

	state := definition.Variant("Send")
	require.NoError(t, m.Fire("on_send_fin", &state))
	assert.Equal(t, definition.Variant("DataSent"), state)

	err = m.Fire("on_send_stream", &state)
	assert.True(t, pfsm.IsInvalid(err))

	require.NoError(t, m.Fire("on_recv_all_acks", &state))
	assert.True(t, m.Is("terminal", state))

	assert.Equal(t, "The application queued data.\nThe first STREAM frame opens the stream.", string(m.Doc("on_send_stream")))
}

func TestBuild_UndeclaredTarget(t *testing.T) {
	doc, err := definition.Parse(strings.NewReader("machine Conn\nstates Idle Open\nclose { Open => Closed }\n"))
	require.NoError(t, err)

	_, err = doc.Build()
	require.ErrorContains(t, err, `unknown state "Closed"`)
}

type streamState uint8

const (
	ready streamState = iota
	send
	dataSent
)

func (s streamState) String() string { return [...]string{"Ready", "Send", "DataSent"}[s] }

func TestBind(t *testing.T) {
	lookup := func(name string) (streamState, bool) {
		for _, s := range []streamState{ready, send, dataSent} {
			if s.String() == name {
				return s, true
			}
		}

		return 0, false
	}

	doc, err := definition.Parse(strings.NewReader(`
machine Stream
is sending = Send | DataSent
on_send_stream { Ready => Send }
on_send_fin { Send => DataSent }
`))
	require.NoError(t, err)

	b, err := definition.Bind(doc, lookup)
	require.NoError(t, err)

	m := b.MustBuild()

	state := ready
	require.NoError(t, m.Event("on_send_stream")(&state))
	assert.Equal(t, send, state)
	assert.True(t, m.Predicate("sending")(state))

	back := definition.FromMachine(m)
	assert.Equal(t, []string{"DataSent", "Ready", "Send"}, back.States)
	assert.Equal(t, doc.Events, back.Events)
	assert.Equal(t, doc.Predicates, back.Predicates)

	doc.Events[0].Clauses[0].To = "Closed"
	_, err = definition.Bind(doc, lookup)
	require.ErrorContains(t, err, `unknown state "Closed"`)
}

func TestLoad_Examples(t *testing.T) {
	for _, name := range []string{"conn.fsm", "handshake.yaml"} {
		t.Run(name, func(t *testing.T) {
			doc, err := definition.Load(filepath.Join("..", "examples", "definitions", name))
			require.NoError(t, err)

			m, err := doc.Build()
			require.NoError(t, err)
			assert.NotEmpty(t, m.TransitionTable().Rows)
		})
	}
}
