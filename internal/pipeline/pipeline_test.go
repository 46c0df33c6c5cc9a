package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/detprep/internal/ctxlog"
)

func record(order *[]string, name string, err error) Stage {
	return Stage{Name: name, Run: func(ctx context.Context) error {
		*order = append(*order, name)
		return err
	}}
}

func TestRun_Sequential(t *testing.T) {
	t.Parallel()

	var order, seen []string
	p := New(record(&order, "a", nil), record(&order, "b", nil), record(&order, "c", nil))
	p.OnStage(func(name string) { seen = append(seen, name) })

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, order, seen)
}

func TestRun_StopEndsSuccessfully(t *testing.T) {
	t.Parallel()

	var order []string
	p := New(record(&order, "a", nil), record(&order, "b", ErrStop), record(&order, "c", nil))

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRun_ErrorStopsAndNamesStage(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	var order []string
	p := New(record(&order, "a", nil), record(&order, "unpack", boom), record(&order, "c", nil))

	err := p.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stage unpack failed")
	assert.Equal(t, []string{"a", "unpack"}, order)
}

func TestRun_StageLoggerCarriesName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(buf, nil)))

	p := New(Stage{Name: "locate", Run: func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Info("inside")
		return nil
	}})
	require.NoError(t, p.Run(ctx))

	assert.Contains(t, buf.String(), "msg=inside stage=locate")
}
