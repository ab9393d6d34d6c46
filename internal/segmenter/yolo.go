package segmenter

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// YOLOSegmenter implements Segmenter using a Python ultralytics subprocess.
// It speaks the same framing protocol as the hand-landmark service:
// length-prefixed JPEG in, one JSON line per image out. Per-detection masks
// travel as base64-encoded grayscale PNGs at the model's own resolution.
type YOLOSegmenter struct {
	config    Config
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewYOLOSegmenter creates a new YOLO segmenter.
// The Python process is started lazily on first detection.
func NewYOLOSegmenter(config Config) (*YOLOSegmenter, error) {
	if findScript(config.ScriptPath) == "" {
		return nil, fmt.Errorf("watch_segmenter_service.py not found")
	}

	return &YOLOSegmenter{
		config: config,
	}, nil
}

type jsonDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	MaskPNG    string  `json:"mask_png,omitempty"`
}

// Detect analyzes an image and returns candidate detections.
func (s *YOLOSegmenter) Detect(img *gocv.Mat) ([]Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	line, err := s.roundTrip(buf.GetBytes())
	if err != nil {
		return nil, err
	}

	var response struct {
		Detections []jsonDetection `json:"detections"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	detections := make([]Detection, 0, len(response.Detections))
	for _, jd := range response.Detections {
		if jd.Confidence < s.config.MinConfidence {
			continue
		}

		det := Detection{Label: jd.Label, Confidence: jd.Confidence}
		if jd.MaskPNG != "" {
			mask, err := decodeMask(jd.MaskPNG)
			if err != nil {
				return nil, fmt.Errorf("decode mask for %q: %w", jd.Label, err)
			}
			det.Mask = mask
		}
		detections = append(detections, det)
	}

	s.resetIdleTimer()

	return detections, nil
}

// Close shuts down the Python process.
func (s *YOLOSegmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func decodeMask(encoded string) (*gocv.Mat, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	mask, err := gocv.IMDecode(raw, gocv.IMReadGrayScale)
	if err != nil {
		return nil, err
	}
	if mask.Empty() {
		mask.Close()
		return nil, fmt.Errorf("empty mask image")
	}
	return &mask, nil
}

func (s *YOLOSegmenter) ensureStarted() error {
	if s.started {
		return nil
	}

	scriptPath := findScript(s.config.ScriptPath)
	if scriptPath == "" {
		return fmt.Errorf("watch_segmenter_service.py not found")
	}

	pythonPath := s.config.PythonPath
	if pythonPath == "" {
		pythonPath = "python3"
	}

	cmd := exec.Command(pythonPath, scriptPath,
		fmt.Sprintf("--min-confidence=%.2f", s.config.MinConfidence))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start segmenter service: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *YOLOSegmenter) roundTrip(data []byte) ([]byte, error) {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := s.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

func (s *YOLOSegmenter) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *YOLOSegmenter) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(30*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

func findScript(override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
		return ""
	}

	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/watch_segmenter_service.py",
		"../scripts/watch_segmenter_service.py",
		filepath.Join(execDir, "scripts/watch_segmenter_service.py"),
		filepath.Join(os.Getenv("HOME"), ".watch-tryon/scripts/watch_segmenter_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
