// Command streamtail follows the analysis event stream and prints one line
// per analysis. It reconnects with Last-Event-ID so no event is printed twice.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/internal/domain"
)

func main() {
	var (
		targetURL string
		since     uint64
		retry     time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8000/api/analyses/stream", "analysis stream URL")
	flag.Uint64Var(&since, "since", 0, "resume after this journal index")
	flag.DurationVar(&retry, "retry", 3*time.Second, "delay before reconnecting")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 0} // streaming
	last := since

	for ctx.Err() == nil {
		n, err := follow(ctx, client, targetURL, last, func(rec domain.AnalysisEventRecord) {
			last = rec.Index
			fmt.Println(formatEvent(rec))
		})
		if ctx.Err() != nil {
			break
		}
		logger.Warn("stream interrupted, reconnecting",
			zap.Error(err), zap.Int("events", n), zap.Uint64("last_index", last), zap.Duration("retry", retry))

		select {
		case <-ctx.Done():
		case <-time.After(retry):
		}
	}
}

// follow opens one stream connection and feeds every event to fn until the
// connection ends. It returns how many events were delivered.
func follow(ctx context.Context, client *http.Client, url string, lastID uint64, fn func(domain.AnalysisEventRecord)) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastID > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(lastID, 10))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	return readEvents(resp.Body, fn)
}

// readEvents parses "analysis" events from an SSE body. Comment lines and
// other event types are skipped.
func readEvents(r io.Reader, fn func(domain.AnalysisEventRecord)) (int, error) {
	reader := bufio.NewReader(r)
	var (
		count int
		id    uint64
		event string
		data  strings.Builder
	)

	dispatch := func() error {
		defer func() {
			id, event = 0, ""
			data.Reset()
		}()
		if data.Len() == 0 || (event != "" && event != "analysis") {
			return nil
		}
		var ev domain.AnalysisEvent
		if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
			return errors.Wrapf(err, "decode event %d", id)
		}
		fn(domain.AnalysisEventRecord{Index: id, Event: ev})
		count++
		return nil
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, dispatch()
			}
			return count, errors.Wrap(err, "read stream")
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return count, err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			id, _ = strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(line, "id:")), 10, 64)
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func formatEvent(rec domain.AnalysisEventRecord) string {
	ev := rec.Event
	asset := ev.Asset
	if asset == "" {
		asset = "-"
	}
	return fmt.Sprintf("#%d %s %s level=%s bias=%s confidence=%.2f regime=%s categories=%s",
		rec.Index, ev.Timestamp.Format(time.RFC3339), asset, ev.Level, ev.Bias, ev.Confidence,
		ev.Regime, strings.Join(ev.Categories, ","))
}
