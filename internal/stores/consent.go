package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	consentRecordVersionV1  = 1
	responseRecordVersionV1 = 1
)

var (
	ErrConsentNotFound         = errors.New("consent not found")
	ErrResponseExists          = errors.New("consent response already exists")
	ErrResponseNotFound        = errors.New("consent response not found")
	ErrConsentRedisUnavailable = errors.New("consent redis unavailable")
)

// ConsentRecord is a stored permission request. Status is never stored: it
// is derived from the request mask and the response, if any.
type ConsentRecord struct {
	ID             string
	DatasetDID     string
	AlgorithmDID   string
	DatasetOwner   string
	AlgorithmOwner string
	Solicitor      string
	Request        uint64
	Reason         string
	CreatedAt      int64
}

// ResponseRecord is the at-most-one answer to a consent.
type ResponseRecord struct {
	ConsentID   string
	Permitted   uint64
	Reason      string
	RespondedAt int64
}

// ConsentStore persists consents, their 1:1 responses, and the owner/
// solicitor index sets behind the listing queries.
type ConsentStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewConsentStore(redisClient redis.UniversalClient, prefix string) *ConsentStore {
	if prefix == "" {
		prefix = "wcc"
	}
	return &ConsentStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ConsentStore) consentKey(id string) string {
	return s.prefix + ":c:" + id
}

func (s *ConsentStore) responseKey(id string) string {
	return s.prefix + ":r:" + id
}

func (s *ConsentStore) pairKey(datasetDID, algorithmDID string) string {
	return s.prefix + ":pair:" + datasetDID + "|" + algorithmDID
}

func (s *ConsentStore) datasetIndexKey(owner string) string {
	return s.prefix + ":idx:ds:" + owner
}

func (s *ConsentStore) algorithmIndexKey(owner string) string {
	return s.prefix + ":idx:alg:" + owner
}

func (s *ConsentStore) solicitorIndexKey(address string) string {
	return s.prefix + ":idx:sol:" + address
}

// Create persists a new consent, enforcing at most one consent per
// (dataset, algorithm) pair. When the pair already has a consent, the
// existing record is returned with created == false. The pair claim and the
// record write happen in one WATCH transaction on the pair key, so a
// concurrent duplicate creator either observes the finished record or
// retries; a pair claim left behind without a record is reclaimed.
func (s *ConsentStore) Create(ctx context.Context, record *ConsentRecord) (*ConsentRecord, bool, error) {
	const maxRetries = 4

	encoded, err := encodeConsentRecord(record)
	if err != nil {
		return nil, false, err
	}

	pairKey := s.pairKey(record.DatasetDID, record.AlgorithmDID)

	var (
		out     *ConsentRecord
		created bool
	)
	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			existingID, err := tx.Get(ctx, pairKey).Result()
			if err == nil {
				data, err := tx.Get(ctx, s.consentKey(existingID)).Bytes()
				if err == nil {
					existing, decErr := decodeConsentRecord(data)
					if decErr != nil {
						return decErr
					}
					out = existing
					created = false
					return nil
				}
				if !errors.Is(err, redis.Nil) {
					return err
				}
				// Pair claimed but no record behind it: a half-finished
				// creation. Reclaim the pair for this record.
			} else if !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, pairKey, record.ID, 0)
				pipe.Set(ctx, s.consentKey(record.ID), encoded, 0)
				pipe.SAdd(ctx, s.datasetIndexKey(record.DatasetOwner), record.ID)
				pipe.SAdd(ctx, s.algorithmIndexKey(record.AlgorithmOwner), record.ID)
				pipe.SAdd(ctx, s.solicitorIndexKey(record.Solicitor), record.ID)
				return nil
			})
			if err != nil {
				return err
			}
			out = record
			created = true
			return nil
		}, pairKey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
		}
		return out, created, nil
	}

	return nil, false, fmt.Errorf("%w: transaction retries exhausted", ErrConsentRedisUnavailable)
}

// Get returns the consent with the given id, or ErrConsentNotFound.
func (s *ConsentStore) Get(ctx context.Context, id string) (*ConsentRecord, error) {
	data, err := s.redis.Get(ctx, s.consentKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrConsentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
	}
	return decodeConsentRecord(data)
}

// Delete removes an unanswered consent and its index entries. A consent
// that already has a response fails with ErrResponseExists; deleting an
// answered consent is not supported.
func (s *ConsentStore) Delete(ctx context.Context, id string) error {
	const maxRetries = 4

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, s.consentKey(id)).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeConsentRecord(data)
			if err != nil {
				return err
			}

			answered, err := tx.Exists(ctx, s.responseKey(id)).Result()
			if err != nil {
				return err
			}
			if answered > 0 {
				return ErrResponseExists
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, s.consentKey(id))
				pipe.Del(ctx, s.pairKey(record.DatasetDID, record.AlgorithmDID))
				pipe.SRem(ctx, s.datasetIndexKey(record.DatasetOwner), id)
				pipe.SRem(ctx, s.algorithmIndexKey(record.AlgorithmOwner), id)
				pipe.SRem(ctx, s.solicitorIndexKey(record.Solicitor), id)
				return nil
			})
			return err
		}, s.consentKey(id), s.responseKey(id))

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrConsentNotFound
			case errors.Is(err, ErrResponseExists):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrConsentNotFound
}

// CreateResponse persists the answer to a consent inside a WATCH
// transaction: the check for an existing response and the insert are one
// atomic unit, so of two concurrent responders exactly one succeeds and the
// other observes ErrResponseExists. The consent key is watched as well, so a
// concurrent Delete of the consent invalidates the transaction instead of
// leaving an orphan response.
func (s *ConsentStore) CreateResponse(ctx context.Context, record *ResponseRecord) error {
	const maxRetries = 4

	encoded, err := encodeResponseRecord(record)
	if err != nil {
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, s.consentKey(record.ConsentID)).Result()
			if err != nil {
				return err
			}
			if exists == 0 {
				return ErrConsentNotFound
			}

			answered, err := tx.Exists(ctx, s.responseKey(record.ConsentID)).Result()
			if err != nil {
				return err
			}
			if answered > 0 {
				return ErrResponseExists
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.responseKey(record.ConsentID), encoded, 0)
				return nil
			})
			return err
		}, s.responseKey(record.ConsentID), s.consentKey(record.ConsentID))

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrConsentNotFound), errors.Is(err, ErrResponseExists):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrResponseExists
}

// GetResponse returns the response for a consent, or ErrResponseNotFound.
func (s *ConsentStore) GetResponse(ctx context.Context, consentID string) (*ResponseRecord, error) {
	data, err := s.redis.Get(ctx, s.responseKey(consentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
	}
	return decodeResponseRecord(data)
}

// DeleteResponse removes the response for a consent, reverting it to
// unanswered.
func (s *ConsentStore) DeleteResponse(ctx context.Context, consentID string) error {
	removed, err := s.redis.Del(ctx, s.responseKey(consentID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
	}
	if removed == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// ListKind selects which index a listing query reads.
type ListKind int

const (
	// ListByDatasetOwner lists consents incoming to a dataset owner.
	ListByDatasetOwner ListKind = iota
	// ListByAlgorithmOwner lists consents outgoing from an algorithm owner.
	ListByAlgorithmOwner
	// ListBySolicitor lists consents created by a solicitor.
	ListBySolicitor
)

// List returns the consents in one of the three indexes, newest first.
// With pendingOnly set, answered consents are filtered out.
func (s *ConsentStore) List(ctx context.Context, kind ListKind, address string, pendingOnly bool) ([]*ConsentRecord, error) {
	var indexKey string
	switch kind {
	case ListByDatasetOwner:
		indexKey = s.datasetIndexKey(address)
	case ListByAlgorithmOwner:
		indexKey = s.algorithmIndexKey(address)
	case ListBySolicitor:
		indexKey = s.solicitorIndexKey(address)
	default:
		return nil, errors.New("invalid list kind")
	}

	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsentRedisUnavailable, err)
	}

	records := make([]*ConsentRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.Get(ctx, id)
		if errors.Is(err, ErrConsentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if pendingOnly {
			if _, err := s.GetResponse(ctx, id); err == nil {
				continue
			} else if !errors.Is(err, ErrResponseNotFound) {
				return nil, err
			}
		}

		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt > records[j].CreatedAt
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

func encodeConsentRecord(record *ConsentRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(consentRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Request); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	fields := []string{
		record.ID,
		record.DatasetDID,
		record.AlgorithmDID,
		record.DatasetOwner,
		record.AlgorithmOwner,
		record.Solicitor,
		record.Reason,
	}
	for _, field := range fields {
		if len(field) > 65535 {
			return nil, errors.New("consent record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeConsentRecord(data []byte) (*ConsentRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != consentRecordVersionV1 {
		return nil, errors.New("invalid consent record version")
	}

	record := &ConsentRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.Request); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	fields := []*string{
		&record.ID,
		&record.DatasetDID,
		&record.AlgorithmDID,
		&record.DatasetOwner,
		&record.AlgorithmOwner,
		&record.Solicitor,
		&record.Reason,
	}
	for _, field := range fields {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}

func encodeResponseRecord(record *ResponseRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(responseRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Permitted); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.RespondedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ConsentID, record.Reason} {
		if len(field) > 65535 {
			return nil, errors.New("response record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeResponseRecord(data []byte) (*ResponseRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != responseRecordVersionV1 {
		return nil, errors.New("invalid response record version")
	}

	record := &ResponseRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.Permitted); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.RespondedAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.ConsentID, &record.Reason} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
