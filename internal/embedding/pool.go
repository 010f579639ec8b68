package embedding

import "fmt"

// pool reduces a model output to one vector. shape (1, D) is returned as a copy;
// shape (1, T, D) is averaged over the tokens whose mask is non-zero.
func pool(data []float32, shape []int64, mask []int64) ([]float32, error) {
	switch len(shape) {
	case 2:
		d := int(shape[1])
		if shape[0] != 1 || len(data) < d {
			return nil, fmt.Errorf("unexpected output shape %v", shape)
		}
		return cloneVec(data[:d]), nil
	case 3:
		tokens, d := int(shape[1]), int(shape[2])
		if shape[0] != 1 || len(data) < tokens*d {
			return nil, fmt.Errorf("unexpected output shape %v", shape)
		}
		out := make([]float32, d)
		var n float32
		for t := 0; t < tokens; t++ {
			if t < len(mask) && mask[t] == 0 {
				continue
			}
			row := data[t*d : (t+1)*d]
			for i, v := range row {
				out[i] += v
			}
			n++
		}
		if n > 0 {
			for i := range out {
				out[i] /= n
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported output rank %d", len(shape))
	}
}

func closeTokenizer(t Tokenizer) {
	if c, ok := t.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
