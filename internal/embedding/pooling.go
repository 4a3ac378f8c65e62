package embedding

// meanPool averages the token vectors of hidden ([seqLen][dims], row-major) whose
// attention mask is set. The result is zero when no token is attended.
func meanPool(hidden []float32, mask []int64, seqLen, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for tok := 0; tok < seqLen && tok < len(mask); tok++ {
		if mask[tok] == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}
