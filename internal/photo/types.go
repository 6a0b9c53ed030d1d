package photo

import "time"

// Record is the per-photo processing state, one per (organizer, event, object key).
type Record struct {
	EventKey        string   `dynamodbav:"EventKey" json:"eventKey"`
	ObjectKey       string   `dynamodbav:"S3ObjectKey" json:"objectKey"`
	Status          Status   `dynamodbav:"ProcessingStatus" json:"status"`
	UploadTimestamp int64    `dynamodbav:"UploadTimestamp,omitempty" json:"uploadTimestamp,omitempty"`
	DetectedBibs    []string `dynamodbav:"DetectedBibs,omitempty" json:"detectedBibs"`
	FaceIDs         []string `dynamodbav:"FaceIds,omitempty" json:"faceIds"`
	ImageWidth      int      `dynamodbav:"ImageWidth,omitempty" json:"imageWidth,omitempty"`
	ImageHeight     int      `dynamodbav:"ImageHeight,omitempty" json:"imageHeight,omitempty"`
	IsGroupPhoto    *bool    `dynamodbav:"isGroupPhoto,omitempty" json:"isGroupPhoto,omitempty"`
	CreatedAt       int64    `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       int64    `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// NewPendingRecord builds the initial record written by the starter.
func NewPendingRecord(organizer, eventID, objectKey string, now time.Time) Record {
	ms := now.UnixMilli()
	return Record{
		EventKey:        EventKey(organizer, eventID),
		ObjectKey:       objectKey,
		Status:          StatusPending,
		UploadTimestamp: ms,
		CreatedAt:       ms,
		UpdatedAt:       ms,
	}
}

// Patch is a partial update of a photo record. Nil fields are left untouched;
// UpdatedAt is always written by the store.
type Patch struct {
	Status       *Status
	DetectedBibs *[]string
	FaceIDs      *[]string
	ImageWidth   *int
	ImageHeight  *int
	IsGroupPhoto *bool
}

// NewPatch returns an empty patch.
func NewPatch() *Patch {
	return &Patch{}
}

func (p *Patch) WithStatus(s Status) *Patch {
	p.Status = &s
	return p
}

func (p *Patch) WithDetectedBibs(bibs []string) *Patch {
	cp := append([]string{}, bibs...)
	p.DetectedBibs = &cp
	return p
}

func (p *Patch) WithFaceIDs(ids []string) *Patch {
	cp := append([]string{}, ids...)
	p.FaceIDs = &cp
	return p
}

func (p *Patch) WithDimensions(width, height int) *Patch {
	p.ImageWidth = &width
	p.ImageHeight = &height
	return p
}

func (p *Patch) WithGroupPhoto(group bool) *Patch {
	p.IsGroupPhoto = &group
	return p
}

// Empty reports whether the patch carries no field changes.
func (p *Patch) Empty() bool {
	return p == nil || (p.Status == nil && p.DetectedBibs == nil && p.FaceIDs == nil &&
		p.ImageWidth == nil && p.ImageHeight == nil && p.IsGroupPhoto == nil)
}

// Apply copies the patched fields onto r and stamps UpdatedAt.
func (p *Patch) Apply(r *Record, now time.Time) {
	if p != nil {
		if p.Status != nil {
			r.Status = *p.Status
		}
		if p.DetectedBibs != nil {
			r.DetectedBibs = append([]string{}, (*p.DetectedBibs)...)
		}
		if p.FaceIDs != nil {
			r.FaceIDs = append([]string{}, (*p.FaceIDs)...)
		}
		if p.ImageWidth != nil {
			r.ImageWidth = *p.ImageWidth
		}
		if p.ImageHeight != nil {
			r.ImageHeight = *p.ImageHeight
		}
		if p.IsGroupPhoto != nil {
			v := *p.IsGroupPhoto
			r.IsGroupPhoto = &v
		}
	}
	r.UpdatedAt = now.UnixMilli()
}

// BibEntry is one row of the bib inverted index.
type BibEntry struct {
	EventBibKey string `dynamodbav:"EventBibKey"`
	ObjectKey   string `dynamodbav:"S3ObjectKey"`
	IndexedAt   int64  `dynamodbav:"IndexedAt"`
}

// Runner is the subset of a roster record this system reads and mutates.
type Runner struct {
	PK            string   `dynamodbav:"pk" json:"-"`
	SK            string   `dynamodbav:"sk" json:"-"`
	BibNumber     string   `dynamodbav:"bib_number,omitempty" json:"bibNumber"`
	Name          string   `dynamodbav:"name,omitempty" json:"name,omitempty"`
	FinishTimeSec int      `dynamodbav:"finish_time_sec,omitempty" json:"finishTimeSec,omitempty"`
	EventID       string   `dynamodbav:"event_id,omitempty" json:"eventId,omitempty"`
	OrganizerID   string   `dynamodbav:"organizer_id,omitempty" json:"organizerId,omitempty"`
	PhotoKeys     []string `dynamodbav:"PhotoKeys,stringset,omitempty" json:"photoKeys,omitempty"`
}
