package progress

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ferry/core"
)

type fakeMessenger struct {
	sends   []string
	edits   []string
	sendErr error
	editErr error
}

func (m *fakeMessenger) Send(_ context.Context, chat core.ChatRef, text string) (core.MessageHandle, error) {
	if m.sendErr != nil {
		return core.MessageHandle{}, m.sendErr
	}
	m.sends = append(m.sends, text)
	return core.MessageHandle{ChatID: chat.ChatID, MessageID: int64(len(m.sends))}, nil
}

func (m *fakeMessenger) Edit(_ context.Context, _ core.MessageHandle, text string) error {
	if m.editErr != nil {
		return m.editErr
	}
	m.edits = append(m.edits, text)
	return nil
}

var percentPattern = regexp.MustCompile(`Progress: ([0-9.]+)%`)

func percentsOf(t *testing.T, edits []string) []float64 {
	t.Helper()
	out := make([]float64, 0, len(edits))
	for _, e := range edits {
		m := percentPattern.FindStringSubmatch(e)
		require.Len(t, m, 2, "edit without percentage: %q", e)
		v, err := strconv.ParseFloat(m[1], 64)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestReporter_FirstCallCreatesMessage(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{ChatID: 7}, "⬇️ Downloading a.bin")

	r.Report(context.Background(), 0, 100)

	assert.Equal(t, []string{"⬇️ Downloading a.bin"}, m.sends)
	assert.Empty(t, m.edits)
}

func TestReporter_ZeroTotalIsNoop(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label")

	r.Report(context.Background(), 10, 0)
	r.Report(context.Background(), 20, 0)

	assert.Len(t, m.sends, 1, "message is still created on first call")
	assert.Empty(t, m.edits)
	assert.Zero(t, r.State().Current)
}

func TestReporter_ThrottlesBelowOnePoint(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label")
	ctx := context.Background()

	for i := int64(0); i <= 1000; i++ {
		r.Report(ctx, i, 1000)
	}

	// One edit per whole percentage point plus nothing extra at 100%.
	assert.Len(t, m.edits, 100)
	assert.Contains(t, m.edits[len(m.edits)-1], "Progress: 100.0%")
}

func TestReporter_FinalFlushAlwaysEmitted(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label")
	ctx := context.Background()

	r.Report(ctx, 0, 1000)
	r.Report(ctx, 995, 1000)
	r.Report(ctx, 1000, 1000)

	require.Len(t, m.edits, 2)
	assert.Contains(t, m.edits[1], "Progress: 100.0%")
	assert.Equal(t, 2, r.State().Updates)
}

func TestReporter_FinalFlushOnlyOnce(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label")
	ctx := context.Background()

	r.Report(ctx, 10, 10)
	r.Report(ctx, 10, 10)

	assert.Len(t, m.edits, 1)
}

func TestReporter_PercentagesNonDecreasing(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label")
	ctx := context.Background()

	sequence := []int64{0, 50, 20, 300, 299, 600, 10, 900, 1000}
	for _, c := range sequence {
		r.Report(ctx, c, 1000)
	}

	percents := percentsOf(t, m.edits)
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100.0, percents[len(percents)-1])
	assert.Equal(t, int64(1000), r.State().Current)
}

func TestReporter_SendFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{sendErr: errors.New("flood wait")}
	r := NewReporter(m, core.ChatRef{}, "label")

	assert.NotPanics(t, func() {
		r.Report(context.Background(), 5, 10)
		r.Report(context.Background(), 10, 10)
	})
	assert.Empty(t, m.edits)
	assert.Equal(t, int64(10), r.State().Current)
}

func TestReporter_EditFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{editErr: errors.New("message not modified")}
	r := NewReporter(m, core.ChatRef{}, "label")

	assert.NotPanics(t, func() {
		r.Report(context.Background(), 5, 10)
		r.Report(context.Background(), 10, 10)
	})
	assert.Zero(t, r.State().Updates)
	assert.Zero(t, r.State().LastPercent)
}

func TestReporter_MinIntervalStillFlushesFinal(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "label", WithMinInterval(time.Hour))
	ctx := context.Background()

	r.Report(ctx, 10, 100)
	r.Report(ctx, 50, 100)
	r.Report(ctx, 90, 100)
	r.Report(ctx, 100, 100)

	percents := percentsOf(t, m.edits)
	assert.Equal(t, []float64{10, 100}, percents)
}

func TestReporter_RendersHumanSizes(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	r := NewReporter(m, core.ChatRef{}, "⬆️ Uploading to GoFile: movie.mkv")

	r.Report(context.Background(), 12_000_000, 40_000_000)

	require.Len(t, m.edits, 1)
	assert.Equal(t, "⬆️ Uploading to GoFile: movie.mkv\nProgress: 30.0% (12 MB / 40 MB)", m.edits[0])
}
