package library

type UpdatePieceRequest struct {
	Title string `json:"title" query:"title" validate:"required"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}
