package bedrock

type titanImageRequest struct {
	TaskType              string                `json:"taskType"`
	TextToImageParams     *titanTextParams      `json:"textToImageParams,omitempty"`
	ImageVariationParams  *titanVariationParams `json:"imageVariationParams,omitempty"`
	ImageGenerationConfig titanImageConfig      `json:"imageGenerationConfig"`
}

type titanTextParams struct {
	Text string `json:"text"`
}

type titanVariationParams struct {
	Text               string   `json:"text,omitempty"`
	Images             []string `json:"images"`
	SimilarityStrength float64  `json:"similarityStrength,omitempty"`
}

type titanImageConfig struct {
	NumberOfImages int     `json:"numberOfImages"`
	Quality        string  `json:"quality"`
	CfgScale       float64 `json:"cfgScale"`
	Height         int     `json:"height"`
	Width          int     `json:"width"`
	Seed           int32   `json:"seed"`
}

type titanImageResponse struct {
	Images []string `json:"images"`
	Error  *string  `json:"error"`
}
