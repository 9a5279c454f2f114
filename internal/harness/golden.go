package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/roach88/chatdb/internal/pattern"
)

// RunWithGolden compiles every question in the scenario and compares the
// concatenated snapshots against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/pattern -update
func RunWithGolden(t *testing.T, sess *pattern.Session, sc *Scenario) {
	t.Helper()

	var buf bytes.Buffer
	for _, q := range sc.Questions {
		compiled, message := sess.Compile(q)
		writeSnapshot(t, &buf, q, compiled, message)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, buf.Bytes())
}

// writeSnapshot appends one question's compilation outcome. The format is
// line-oriented so golden diffs stay readable.
func writeSnapshot(t *testing.T, buf *bytes.Buffer, question string, compiled *pattern.Compiled, message string) {
	t.Helper()

	fmt.Fprintf(buf, "Q: %s\n", question)
	if compiled == nil {
		fmt.Fprintf(buf, "pattern: (none)\nmessage: %s\n\n", message)
		return
	}

	fmt.Fprintf(buf, "pattern: %s\n", compiled.Pattern)
	fmt.Fprintf(buf, "description: %s\n", message)
	switch {
	case compiled.SQL != nil:
		fmt.Fprintf(buf, "sql: %s\n", compiled.SQL.Text)
		fmt.Fprintf(buf, "args: %v\n", compiled.SQL.Args)
	case compiled.Doc != nil:
		writeDocOp(t, buf, compiled)
	}
	buf.WriteString("\n")
}

func writeDocOp(t *testing.T, buf *bytes.Buffer, compiled *pattern.Compiled) {
	t.Helper()

	op := compiled.Doc
	fmt.Fprintf(buf, "op: %s\n", op.Kind)
	switch {
	case op.Pipeline != nil:
		for _, stage := range op.Pipeline {
			fmt.Fprintf(buf, "stage: %s\n", extJSON(t, stage))
		}
	case op.Field != "":
		fmt.Fprintf(buf, "field: %s\n", op.Field)
		fmt.Fprintf(buf, "filter: %s\n", extJSON(t, op.Filter))
	default:
		fmt.Fprintf(buf, "filter: %s\n", extJSON(t, op.Filter))
		fmt.Fprintf(buf, "projection: %s\n", extJSON(t, op.Projection))
	}
}

// extJSON renders a bson document in canonical field order.
func extJSON(t *testing.T, doc bson.D) string {
	t.Helper()

	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		t.Fatalf("marshal pipeline stage: %v", err)
	}
	return string(data)
}
