package entities

// SoilSample is what a farmer submits on the crop form. It lives for one request.
type SoilSample struct {
	Nitrogen    int     `json:"nitrogen"`
	Phosphorous int     `json:"phosphorous"`
	Potassium   int     `json:"potassium"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"` // mm
	Location    string  `json:"location"` // city name for the weather lookup
}
