//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/resumatch/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath string
	// TokenizerPath is a HuggingFace tokenizer.json; empty selects SimpleTokenizer.
	TokenizerPath  string
	Dimensions     int
	MaxTokens      int
	IntraOpThreads int
}

var ortInitMu sync.Mutex

// ONNXEmbedder runs a sentence embedding model with ONNX Runtime on the CPU execution
// provider. Models emitting pooled (1, D) output are used as is; (1, T, D) token output is
// mean-pooled over the attention mask. Requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	mu         sync.Mutex
}

// NewONNXEmbedder loads the model. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	ortInitMu.Lock()
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitMu.Unlock()
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	ortInitMu.Unlock()

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model input/output info: %w", err)
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no outputs", opts.ModelPath)
	}
	inputNames := make([]string, 0, len(inputs))
	for _, in := range inputs {
		switch in.Name {
		case "input_ids", "attention_mask", "token_type_ids":
			inputNames = append(inputNames, in.Name)
		default:
			return nil, fmt.Errorf("unsupported model input %q", in.Name)
		}
	}

	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = so.Destroy() }()
	if opts.IntraOpThreads > 0 {
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	tok, err := newTokenizer(opts.TokenizerPath)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, []string{outputs[0].Name}, so)
	if err != nil {
		closeTokenizer(tok)
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &ONNXEmbedder{
		session:    session,
		inputNames: inputNames,
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
		tokenizer:  tok,
	}, nil
}

// Embed runs inference for text and returns the L2-normalized embedding.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.run(text)
	if err != nil {
		observe(providerONNX, start, "inference")
		return nil, &EncodingError{Err: err}
	}
	observe(providerONNX, start, "")
	return vec, nil
}

func (e *ONNXEmbedder) run(text string) ([]float32, error) {
	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	byName := map[string][]int64{"input_ids": ids, "attention_mask": mask, "token_type_ids": types}
	shape := ort.NewShape(1, int64(e.maxTokens))

	e.mu.Lock()
	defer e.mu.Unlock()

	inputs := make([]ort.Value, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()
	for i, name := range e.inputNames {
		t, err := ort.NewTensor(shape, byName[name])
		if err != nil {
			return nil, fmt.Errorf("create %s tensor: %w", name, err)
		}
		inputs[i] = t
	}
	outputs := []ort.Value{nil}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() { _ = outputs[0].Destroy() }()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unsupported output tensor type")
	}
	vec, err := pool(out.GetData(), out.GetShape(), mask)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("model returned %d dimensions, expected %d", len(vec), e.dimensions)
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and the tokenizer.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	closeTokenizer(e.tokenizer)
	return err
}
