package models

// UploadQueue is the persisted hand-off from a completed upload batch to
// the per-document metadata workflow. JSON field names match the stored
// record format.
type UploadQueue struct {
	DocumentIDs  []int `json:"documentIds"`
	CurrentIndex int   `json:"currentIndex"`
	TotalCount   int   `json:"totalCount"`
}

// Current returns the document the cursor points at, or false when the
// queue is exhausted.
func (q *UploadQueue) Current() (int, bool) {
	if q.CurrentIndex < 0 || q.CurrentIndex >= len(q.DocumentIDs) {
		return 0, false
	}
	return q.DocumentIDs[q.CurrentIndex], true
}

// Done reports whether every document in the queue has been processed
func (q *UploadQueue) Done() bool {
	return q.CurrentIndex >= q.TotalCount
}
