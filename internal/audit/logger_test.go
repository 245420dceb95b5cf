package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/baechuer/curation-service/internal/domain"
	pkgctx "github.com/baechuer/curation-service/internal/pkg/context"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestCaseTransitioned(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))
	ctx := pkgctx.WithRequestID(context.Background(), "req-42")

	l.CaseTransitioned(ctx, "case-1", "mod-1", domain.CaseOpen, domain.CaseResolved)

	m := decode(t, &buf)
	assert.Equal(t, true, m["audit"])
	assert.Equal(t, "case_transitioned", m["action"])
	assert.Equal(t, "open", m["from"])
	assert.Equal(t, "resolved", m["to"])
	assert.Equal(t, "req-42", m["trace_id"])
}

func TestSubmissionRejected(t *testing.T) {
	var buf bytes.Buffer
	New(zerolog.New(&buf)).SubmissionRejected(context.Background(), "u1", domain.TargetComment, "list-1", "duplicate")

	m := decode(t, &buf)
	assert.Equal(t, "submission_rejected", m["action"])
	assert.Equal(t, "duplicate", m["reason"])
	assert.Equal(t, "", m["trace_id"])
}
