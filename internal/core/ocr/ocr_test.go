package ocr

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t300\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t80\t20\t90\tProject:\n" +
	"5\t1\t1\t1\t1\t2\t100\t10\t80\t20\t80\tX1310\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t80\t20\t70\t_____\n" +
	"5\t1\t2\t1\t1\t1\t10\t80\t80\t20\t-1\tV17\n" +
	"5\t1\t2\t1\t1\t2\t10\t80\t80\t20\t\t\n"

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error
	args   []string
	sawImg bool
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.args = args
	if len(args) > 0 {
		if _, err := os.Stat(args[0]); err == nil {
			f.sawImg = true
		}
	}
	return f.stdout, f.stderr, f.err
}

func TestParseTSV(t *testing.T) {
	lines, err := ParseTSV([]byte(sampleTSV))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
	if lines[0].Text != "Project: X1310" {
		t.Fatalf("line 0 = %q", lines[0].Text)
	}
	if !lines[0].Scored || lines[0].Confidence < 0.849 || lines[0].Confidence > 0.851 {
		t.Fatalf("line 0 confidence = %v (scored %v), want 0.85", lines[0].Confidence, lines[0].Scored)
	}
	if lines[1].Text != "V17" || lines[1].Scored {
		t.Fatalf("line 1 = %+v, want unscored V17", lines[1])
	}
	for _, l := range lines {
		if l.Provenance != constants.ProvenanceOCR {
			t.Fatalf("provenance = %q", l.Provenance)
		}
	}
}

func TestTesseractCLIRecognize(t *testing.T) {
	r := &fakeRunner{stdout: []byte(sampleTSV)}
	e := NewTesseractCLI(Config{TempDir: t.TempDir(), PSM: 6}, r, slog.Default())

	lines, err := e.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !r.sawImg {
		t.Fatal("runner did not see the temp image")
	}
	joined := strings.Join(r.args, " ")
	for _, want := range []string{"stdout", "-l eng+fra", "--psm 6", "tsv"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

func TestTesseractCLIFailure(t *testing.T) {
	r := &fakeRunner{stderr: []byte("Error opening data file"), err: errors.New("exit status 1")}
	e := NewTesseractCLI(Config{TempDir: t.TempDir()}, r, slog.Default())

	_, err := e.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, common.ErrRecognition) {
		t.Fatalf("err = %v, want ErrRecognition", err)
	}
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("Project:\tX1310\r\n\r\n  ----  \nMaturity   V17\n|__|\n")
	want := []string{"Project: X1310", "Maturity V17"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("SplitLines = %q, want %q", got, want)
	}
	if SplitLines("") != nil {
		t.Fatal("empty input should yield nil")
	}
}

type slowEngine struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *slowEngine) Name() string { return "slow" }

func (s *slowEngine) Recognize(ctx context.Context, _ *image.Gray) ([]Line, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return []Line{{Text: "ok"}}, nil
}

func TestSerializeOneAtATime(t *testing.T) {
	inner := &slowEngine{}
	e := Serialize(inner)
	if Serialize(e) != e {
		t.Fatal("Serialize should not double-wrap")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Recognize(context.Background(), nil); err != nil {
				t.Errorf("Recognize: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := inner.maxSeen.Load(); got != 1 {
		t.Fatalf("max concurrent recognitions = %d, want 1", got)
	}
}

func TestSerializeHonoursCancel(t *testing.T) {
	s := Serialize(&slowEngine{}).(*serialized)
	s.sem <- struct{}{} // hold the engine
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Recognize(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestNewUnknownEngine(t *testing.T) {
	if _, err := New(Config{Engine: "abbyy"}, nil); !errors.Is(err, ErrUnknownEngine) {
		t.Fatalf("err = %v, want ErrUnknownEngine", err)
	}
}
