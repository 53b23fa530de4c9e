package local

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcoot/numerus/internal/model"
)

// Keys of the two persisted blobs
const (
	RoomKey          = "numerus-room"
	OnlineSessionKey = "numerus-online-session"
)

// storedRoomDoc mirrors StoredRoomSnapshot with every field optional
type storedRoomDoc struct {
	Code       any   `json:"code"`
	Players    []any `json:"players"`
	ShowHints  any   `json:"showHints"`
	Difficulty any   `json:"difficulty"`
}

// LoadRoom reads the stored local room. Malformed or missing data yields nil.
// Missing player fields are filled in rather than rejecting the snapshot.
func LoadRoom(ctx context.Context, store Store) (*model.StoredRoomSnapshot, error) {
	raw, ok, err := store.Get(ctx, RoomKey)
	if err != nil || !ok {
		return nil, err
	}

	var doc storedRoomDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil
	}
	code := stringOf(doc.Code)
	if code == "" {
		return nil, nil
	}

	snap := &model.StoredRoomSnapshot{
		Code:      model.NormalizeRoomCode(code),
		Players:   make([]model.StoredPlayer, 0, len(doc.Players)),
		ShowHints: doc.ShowHints == true,
	}
	for idx, entry := range doc.Players {
		fields, _ := entry.(map[string]any)
		p := model.StoredPlayer{
			ID:   model.PlayerID(fmt.Sprintf("p-%d", idx)),
			Name: fmt.Sprintf("Player %d", idx+1),
		}
		if id, ok := fields["id"].(string); ok {
			p.ID = model.PlayerID(id)
		}
		if name, ok := fields["name"].(string); ok {
			p.Name = name
		}
		if points, ok := fields["points"].(float64); ok {
			p.Score = int(points)
		}
		p.IsBot = fields["isBot"] == true
		snap.Players = append(snap.Players, p)
	}

	if d, err := model.ParseDifficulty(stringOf(doc.Difficulty)); err == nil && stringOf(doc.Difficulty) != "" {
		snap.Difficulty = d
	} else if snap.ShowHints {
		snap.Difficulty = model.DifficultyEasy
	} else {
		snap.Difficulty = model.DifficultyNormal
	}
	return snap, nil
}

// SaveRoom writes the local room snapshot
func SaveRoom(ctx context.Context, store Store, snap model.StoredRoomSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return store.Set(ctx, RoomKey, data)
}

// ClearRoom removes the local room snapshot
func ClearRoom(ctx context.Context, store Store) error {
	return store.Remove(ctx, RoomKey)
}

// LoadOnlineSession reads the online seat pointer. Incomplete pointers yield nil.
func LoadOnlineSession(ctx context.Context, store Store) (*model.StoredOnlineSession, error) {
	raw, ok, err := store.Get(ctx, OnlineSessionKey)
	if err != nil || !ok {
		return nil, err
	}

	var sess model.StoredOnlineSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, nil
	}
	if sess.RoomID == "" || sess.RoomCode == "" || sess.PlayerID == "" || sess.Username == "" {
		return nil, nil
	}
	return &sess, nil
}

// SaveOnlineSession writes the online seat pointer
func SaveOnlineSession(ctx context.Context, store Store, sess model.StoredOnlineSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return store.Set(ctx, OnlineSessionKey, data)
}

// ClearOnlineSession removes the online seat pointer
func ClearOnlineSession(ctx context.Context, store Store) error {
	return store.Remove(ctx, OnlineSessionKey)
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}
