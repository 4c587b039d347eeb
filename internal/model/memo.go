package model

type Memo struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Type    string   `json:"type"`
	IsDone  bool     `json:"is_done"`
	Tags    []string `json:"tags"`
	UserID  string   `json:"user_id"`
}

type MemoRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Type    string   `json:"type"`
	IsDone  bool     `json:"is_done"`
	Tags    []string `json:"tags"`
}
