package activitymap

import (
	"strings"
	"time"

	accounts "github.com/goliatone/go-accounts"
)

const (
	// MetadataKeyActorType holds accounts.ActorRef.Type
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromStatus holds the status an account left
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus holds the status an account entered
	MetadataKeyToStatus = "to_status"
)

const (
	ChannelAccounts = "accounts"
	ChannelAuth     = "auth"

	ObjectAccount      = "account"
	ObjectAccountBatch = "account_batch"

	systemActor = "system"
)

// Normalized is the flat record written by sinks.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes Normalize.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel string
	now     func() time.Time
}

// WithChannel puts every record on channel instead of the per event default.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithClock sets the time used for events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// Normalize flattens an account activity event.
//
// Bulk events describe a set of accounts and carry no object id. Events an
// account triggers on itself (registration, verification, login) fall back
// to the account id as actor; everything else falls back to "system".
func Normalize(event accounts.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	out := Normalized{
		ActorID:    actorID(event),
		Verb:       string(event.EventType),
		ObjectType: ObjectAccount,
		ObjectID:   strings.TrimSpace(event.AccountID),
		Channel:    channelFor(event.EventType),
		Metadata:   normalizeMetadata(event),
		OccurredAt: event.OccurredAt,
	}

	if isBatch(event.EventType) {
		out.ObjectType = ObjectAccountBatch
		out.ObjectID = ""
	}
	if options.channel != "" {
		out.Channel = options.channel
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = options.now().UTC()
	}

	return out
}

func actorID(event accounts.ActivityEvent) string {
	if id := strings.TrimSpace(event.Actor.ID); id != "" {
		return id
	}

	switch event.EventType {
	case accounts.ActivityEventAccountRegistered,
		accounts.ActivityEventAccountVerified,
		accounts.ActivityEventLoginSuccess,
		accounts.ActivityEventLoginFailure:
		if id := strings.TrimSpace(event.AccountID); id != "" {
			return id
		}
	}
	return systemActor
}

func channelFor(eventType accounts.ActivityEventType) string {
	if strings.HasPrefix(string(eventType), "auth.") {
		return ChannelAuth
	}
	return ChannelAccounts
}

func isBatch(eventType accounts.ActivityEventType) bool {
	switch eventType {
	case accounts.ActivityEventBulkStatusChanged,
		accounts.ActivityEventAccountsDeleted,
		accounts.ActivityEventUnverifiedPurged:
		return true
	}
	return false
}

func normalizeMetadata(event accounts.ActivityEvent) map[string]any {
	size := len(event.Metadata) + 3
	metadata := make(map[string]any, size)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, ok := metadata[MetadataKeyActorType]; !ok {
			metadata[MetadataKeyActorType] = actorType
		}
	}
	if event.FromStatus != "" {
		metadata[MetadataKeyFromStatus] = event.FromStatus.String()
	}
	if event.ToStatus != "" {
		metadata[MetadataKeyToStatus] = event.ToStatus.String()
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
