package detector

import "image"

// Detection is a single face found in a frame. It lives for one cycle.
type Detection struct {
	Box       image.Rectangle
	Embedding []float32
	Landmarks [][]float64 // reported by the model, unused by matching
	Score     float64
}

// faceDetection is one entry of the /embed/face response
type faceDetection struct {
	FaceIndex int         `json:"face_index"`
	Dim       int         `json:"dim"`
	Embedding []float32   `json:"embedding"`
	BBox      []float64   `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64     `json:"det_score"`
	Landmarks [][]float64 `json:"landmarks,omitempty"`
}

// FaceResponse represents the response from the face embedding endpoint
type FaceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}
