package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	nonceRecordVersionV1 = 1
)

var (
	ErrNonceNotFound         = errors.New("nonce record not found")
	ErrNonceExpired          = errors.New("nonce record expired")
	ErrNonceRedisUnavailable = errors.New("nonce redis unavailable")
)

// NonceRecord is the single outstanding challenge for one wallet address.
// Every field needed to rebuild the challenge message is stored server-side.
type NonceRecord struct {
	Address   string
	Nonce     string
	ChainID   uint64
	Domain    string
	URI       string
	IssuedAt  int64
	ExpiresAt int64
}

// NonceStore keeps at most one live NonceRecord per address.
type NonceStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewNonceStore(redisClient redis.UniversalClient, prefix string) *NonceStore {
	if prefix == "" {
		prefix = "wcn"
	}
	return &NonceStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *NonceStore) key(address string) string {
	return s.prefix + ":" + address
}

// Issue upserts the record for its address in one atomic SET, superseding
// any challenge already outstanding for that address. The key TTL mirrors
// the record's ExpiresAt so abandoned challenges age out of Redis on their
// own.
func (s *NonceStore) Issue(ctx context.Context, record *NonceRecord, ttl time.Duration) error {
	encoded, err := encodeNonceRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(record.Address), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNonceRedisUnavailable, err)
	}

	return nil
}

// Fetch returns the live record for address without consuming it. A missing
// record fails with ErrNonceNotFound; a record past its expiry fails with
// ErrNonceExpired and is deleted as a side effect.
func (s *NonceStore) Fetch(ctx context.Context, address string) (*NonceRecord, error) {
	data, err := s.redis.Get(ctx, s.key(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNonceNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrNonceRedisUnavailable, err)
	}

	record, err := decodeNonceRecord(data)
	if err != nil {
		return nil, err
	}

	if time.Now().Unix() >= record.ExpiresAt {
		if err := s.redis.Del(ctx, s.key(address)).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNonceRedisUnavailable, err)
		}
		return nil, ErrNonceExpired
	}

	return record, nil
}

// Consume deletes the record for address, but only while it still carries
// the given nonce value. Two concurrent verifications of the same signature
// race here: exactly one wins, the loser observes ErrNonceNotFound. Called
// only after the signature matched; a failed verification leaves the record
// intact for retry.
func (s *NonceStore) Consume(ctx context.Context, address, nonce string) error {
	const maxRetries = 4
	key := s.key(address)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeNonceRecord(data)
			if err != nil {
				return err
			}

			if record.Nonce != nonce {
				// Superseded by a newer challenge; nothing to consume.
				return ErrNonceNotFound
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrNonceNotFound
			case errors.Is(err, ErrNonceNotFound):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrNonceRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrNonceNotFound
}

func encodeNonceRecord(record *NonceRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(nonceRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.ChainID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.Address, record.Nonce, record.Domain, record.URI} {
		if len(field) > 65535 {
			return nil, errors.New("nonce record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeNonceRecord(data []byte) (*NonceRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != nonceRecordVersionV1 {
		return nil, errors.New("invalid nonce record version")
	}

	record := &NonceRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.ChainID); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.Address, &record.Nonce, &record.Domain, &record.URI} {
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
