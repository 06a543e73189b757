package device

// Stats are the counters accumulated by one frame's Commands since BeginFrame.
type Stats struct {
	// DrawnIndices is the total index count of every draw.
	DrawnIndices int
	// ShadersUsed is the number of distinct pipelines bound.
	ShadersUsed int
	// ShaderRebinds counts every pipeline bind.
	ShaderRebinds int
	// MaterialsUsed is the number of distinct material descriptors bound.
	MaterialsUsed int
	// MaterialRebinds counts every material descriptor bind.
	MaterialRebinds int
	// DrawCalls counts indexed draws.
	DrawCalls int
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		DrawnIndices:    s.DrawnIndices + o.DrawnIndices,
		ShadersUsed:     s.ShadersUsed + o.ShadersUsed,
		ShaderRebinds:   s.ShaderRebinds + o.ShaderRebinds,
		MaterialsUsed:   s.MaterialsUsed + o.MaterialsUsed,
		MaterialRebinds: s.MaterialRebinds + o.MaterialRebinds,
		DrawCalls:       s.DrawCalls + o.DrawCalls,
	}
}
