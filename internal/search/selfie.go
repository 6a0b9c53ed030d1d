package search

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/kozaktomas/snaprace/internal/externalid"
	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/recognition"
)

const (
	msgNoFaceMatches = "No matching faces found. Try with a clearer selfie or different angle."
	msgNoCollection  = "No faces indexed for this event yet. Please wait for photos to be processed."
)

// FaceSearcher searches an event collection for similar faces.
type FaceSearcher interface {
	CollectionID(organizer, eventID string) string
	SearchFaces(ctx context.Context, collectionID string, image []byte, maxFaces int, threshold float64) ([]recognition.FaceMatch, error)
}

// SelfieRequest is a search-by-selfie query with decoded image bytes.
type SelfieRequest struct {
	Organizer string
	EventID   string
	Image     []byte
}

// Match is one face match, ranked by similarity.
type Match struct {
	PhotoKey   string  `json:"photoKey"`
	Similarity float64 `json:"similarity"`
	FaceID     string  `json:"faceId"`
}

// SelfieResponse lists the photos showing the selfie face.
type SelfieResponse struct {
	Organizer  string   `json:"organizer"`
	EventID    string   `json:"eventId"`
	ImageURLs  []string `json:"imageUrls"`
	PhotoCount int      `json:"photoCount"`
	Matches    []Match  `json:"matches"`
	Message    string   `json:"message,omitempty"`
}

type SelfieOptions struct {
	Faces      FaceSearcher
	CDNBaseURL string
	MaxFaces   int
	// Threshold is the minimum similarity, 0-100.
	Threshold float64
	Logger    *slog.Logger
}

// SelfieSearcher finds event photos by face similarity.
type SelfieSearcher struct {
	opts SelfieOptions
}

func NewSelfieSearcher(opts SelfieOptions) *SelfieSearcher {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &SelfieSearcher{opts: opts}
}

func (s *SelfieSearcher) Search(ctx context.Context, req SelfieRequest) (SelfieResponse, error) {
	if req.Organizer == "" || req.EventID == "" || len(req.Image) == 0 {
		return SelfieResponse{}, invalid("Missing required fields: organizer, eventId, selfieImage")
	}

	resp := SelfieResponse{
		Organizer: req.Organizer,
		EventID:   req.EventID,
		ImageURLs: []string{},
		Matches:   []Match{},
	}
	collectionID := s.opts.Faces.CollectionID(req.Organizer, req.EventID)
	log := s.opts.Logger.With("organizer", req.Organizer, "eventId", req.EventID, "collectionId", collectionID)

	found, err := s.opts.Faces.SearchFaces(ctx, collectionID, req.Image, s.opts.MaxFaces, s.opts.Threshold)
	if errors.Is(err, recognition.ErrCollectionNotFound) {
		log.Warn("face collection not found")
		resp.Message = msgNoCollection
		return resp, nil
	}
	if err != nil {
		return SelfieResponse{}, fmt.Errorf("search faces: %w", err)
	}

	for _, m := range found {
		if m.ExternalImageID == "" {
			continue
		}
		resp.Matches = append(resp.Matches, Match{
			PhotoKey:   externalid.Decode(m.ExternalImageID),
			Similarity: m.Similarity,
			FaceID:     m.FaceID,
		})
	}
	slices.SortStableFunc(resp.Matches, func(a, b Match) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	seen := make(map[string]bool, len(resp.Matches))
	for _, m := range resp.Matches {
		u := PhotoURL(s.opts.CDNBaseURL, m.PhotoKey)
		if !seen[u] {
			seen[u] = true
			resp.ImageURLs = append(resp.ImageURLs, u)
		}
	}
	resp.PhotoCount = len(resp.ImageURLs)

	if resp.PhotoCount == 0 {
		resp.Message = msgNoFaceMatches
	} else {
		resp.Message = fmt.Sprintf("Found %d photo(s) with matching faces", resp.PhotoCount)
	}
	log.Info("selfie search completed", "matches", len(resp.Matches), "photoCount", resp.PhotoCount)
	return resp, nil
}

// PhotoURL builds the public URL of a photo, escaping each path segment.
func PhotoURL(baseURL, photoKey string) string {
	segments := strings.Split(photoKey, "/")
	for i, seg := range segments {
		segments[i] = escapeSegment(seg)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}

// componentUnescaper restores the marks a browser's encodeURIComponent keeps.
var componentUnescaper = strings.NewReplacer("+", "%20", "%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")

// escapeSegment escapes every reserved character, so "+" in a key is never read as a space.
func escapeSegment(seg string) string {
	return componentUnescaper.Replace(url.QueryEscape(seg))
}

// DecodeSelfie decodes a base64 selfie, with or without a data URL prefix.
func DecodeSelfie(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, invalid("Missing required fields: organizer, eventId, selfieImage")
	}
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		if _, payload, found := strings.Cut(rest, ";base64,"); found {
			encoded = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(data) == 0 {
		return nil, invalid("selfieImage must be a valid base64 encoded image")
	}
	return data, nil
}

type selfieBody struct {
	Organizer   string `json:"organizer"`
	EventID     string `json:"eventId"`
	SelfieImage string `json:"selfieImage"`
}

// ParseSelfieJSON decodes a JSON selfie request body carrying a base64 image.
func ParseSelfieJSON(data []byte) (SelfieRequest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return SelfieRequest{}, invalid("Request body is required")
	}
	var body selfieBody
	if err := json.Unmarshal(data, &body); err != nil {
		return SelfieRequest{}, invalid("Invalid JSON format")
	}
	if body.Organizer == "" || body.EventID == "" || body.SelfieImage == "" {
		return SelfieRequest{}, invalid("Missing required fields: organizer, eventId, selfieImage")
	}
	image, err := DecodeSelfie(body.SelfieImage)
	if err != nil {
		return SelfieRequest{}, err
	}
	return SelfieRequest{Organizer: body.Organizer, EventID: body.EventID, Image: image}, nil
}
