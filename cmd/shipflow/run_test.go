package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	ierr "github.com/mark3labs/shipflow/internal/errors"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/hooks"
	"github.com/mark3labs/shipflow/internal/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompletionHooks(t *testing.T) {
	t.Chdir(t.TempDir())

	res := flow.Result{
		ShippingInformation: shipping.ShippingInformation{Address: shipping.Address{Country: "US"}},
		ShippingMethod:      &shipping.ShippingMethod{ID: "fedex"},
	}

	// No hooks file
	var out bytes.Buffer
	require.NoError(t, runCompletionHooks(context.Background(), &out, "run-1", res))
	assert.Empty(t, out.String())

	content := `hooks:
  on_complete:
    - command: "echo {{run}} {{outcome}} {{country}} {{method}}"
      pipe_output: true
`
	require.NoError(t, os.WriteFile(hooks.ConfigFileName, []byte(content), 0644))

	require.NoError(t, runCompletionHooks(context.Background(), &out, "run-1", res))
	assert.Equal(t, "run-1 completed US fedex\n", out.String())
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, flow.Result{Cancelled: true})
	assert.Contains(t, out.String(), "cancelled")
}

func TestReportShutdown(t *testing.T) {
	var out bytes.Buffer
	reportShutdown(&out, nil)
	assert.Empty(t, out.String())

	reportShutdown(&out, ierr.NewTransientError("worker shutdown", errors.New("timed out after 2s")))
	assert.Empty(t, out.String(), "transient shutdown errors are only logged")

	m := &ierr.MultiError{}
	m.Append(ierr.NewTransientError("worker shutdown", errors.New("timed out after 2s")))
	m.Append(errors.New("NATS shutdown failed"))
	reportShutdown(&out, m.ErrorOrNil())
	assert.Contains(t, out.String(), "Error during shutdown")
	assert.Contains(t, out.String(), "NATS shutdown failed")
}
