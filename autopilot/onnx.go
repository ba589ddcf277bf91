package autopilot

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/brensch/snek5110/game"
	"github.com/brensch/snek5110/rules"
	"github.com/brensch/snek5110/session"
	ort "github.com/yalue/onnxruntime_go"
)

// Model tensor names. The policy output has one logit per game.Directions
// entry, in that order.
const (
	InputName  = "input"
	OutputName = "policy"
	PolicySize = len(game.Directions)
)

var ortInitOnce sync.Once
var ortInitErr error

// OnnxPolicy scores moves with an ONNX model and plays the best legal one.
// Safe for concurrent use; inference is serialised.
type OnnxPolicy struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	input   []float32
}

// NewOnnxPolicy loads the model at modelPath. ORT_SHARED_LIBRARY_PATH selects
// the onnxruntime shared library when set.
func NewOnnxPolicy(modelPath string) (*OnnxPolicy, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %s: %w", modelPath, err)
	}
	if p := os.Getenv("ORT_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to init ort: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer options.Destroy()
	// One board per call; extra threads only add contention.
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, []string{InputName}, []string{OutputName}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &OnnxPolicy{session: sess, input: make([]float32, InputSize)}, nil
}

func (p *OnnxPolicy) Close() error {
	return p.session.Destroy()
}

// Logits runs the model on snap.
func (p *OnnxPolicy) Logits(snap session.Snapshot) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	EncodeInto(p.input, snap)
	in, err := ort.NewTensor(ort.NewShape(1, NumPlanes, game.Height, game.Width), p.input)
	if err != nil {
		return nil, err
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(PolicySize)))
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	if err := p.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run policy: %w", err)
	}
	logits := make([]float32, PolicySize)
	copy(logits, out.GetData())
	return logits, nil
}

// Next picks the highest scoring legal move. Inference errors leave the
// heading unchanged.
func (p *OnnxPolicy) Next(snap session.Snapshot) (game.Direction, bool) {
	s := snakeFrom(snap)
	if s == nil {
		return game.Direction{}, false
	}
	logits, err := p.Logits(snap)
	if err != nil {
		return game.Direction{}, false
	}
	return bestLegal(logits, rules.LegalMoves(s))
}

func bestLegal(logits []float32, legal []game.Direction) (game.Direction, bool) {
	best := game.Direction{}
	bestScore := float32(math.Inf(-1))
	found := false
	for i, d := range game.Directions {
		if i >= len(logits) {
			break
		}
		ok := false
		for _, l := range legal {
			if l == d {
				ok = true
				break
			}
		}
		if !ok {
			continue
		}
		if !found || logits[i] > bestScore {
			best, bestScore, found = d, logits[i], true
		}
	}
	return best, found
}

// Load returns the ONNX policy for modelPath, or Greedy when modelPath is
// empty. The returned func releases the model.
func Load(modelPath string) (Policy, func() error, error) {
	if modelPath == "" {
		return Greedy{}, func() error { return nil }, nil
	}
	p, err := NewOnnxPolicy(modelPath)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
