package manager

// InferParams captures generation parameters passed to the runtime.
type InferParams struct {
	// Temperature is a pointer so an explicit 0 survives defaulting.
	Temperature *float64
	TopP        float64
	TopK        int
	// MaxTokens maps to the runtime's num_predict option.
	MaxTokens int
}

const defaultTemperature = 0.7

// DefaultInferParams are the behavior defaults used when none are configured.
var DefaultInferParams = InferParams{Temperature: Float(defaultTemperature), TopP: 0.9, TopK: 40, MaxTokens: 2000}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func (p InferParams) withDefaults() InferParams {
	if p.Temperature == nil {
		p.Temperature = Float(defaultTemperature)
	}
	if p.TopP <= 0 {
		p.TopP = DefaultInferParams.TopP
	}
	if p.TopK <= 0 {
		p.TopK = DefaultInferParams.TopK
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultInferParams.MaxTokens
	}
	return p
}

// options renders p in the runtime's option naming.
func (p InferParams) options() map[string]any {
	temp := defaultTemperature
	if p.Temperature != nil {
		temp = *p.Temperature
	}
	return map[string]any{
		"temperature": temp,
		"top_p":       p.TopP,
		"top_k":       p.TopK,
		"num_predict": p.MaxTokens,
	}
}
