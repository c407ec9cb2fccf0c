package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

const identityRecordVersionV1 = 1

var ErrIdentityRedisUnavailable = errors.New("identity redis unavailable")

// IdentityRecord tracks when a wallet address was first seen by the system.
type IdentityRecord struct {
	Address   string
	FirstSeen int64
}

// IdentityStore persists one record per checksummed wallet address.
type IdentityStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewIdentityStore(redisClient redis.UniversalClient, prefix string) *IdentityStore {
	if prefix == "" {
		prefix = "wci"
	}
	return &IdentityStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *IdentityStore) key(address string) string {
	return s.prefix + ":" + address
}

// GetOrCreate returns the identity for an address, creating it on first
// contact. SETNX keeps concurrent first contacts down to one record, so
// FirstSeen never moves once written.
func (s *IdentityStore) GetOrCreate(ctx context.Context, address string, now int64) (*IdentityRecord, bool, error) {
	record := &IdentityRecord{
		Address:   address,
		FirstSeen: now,
	}

	encoded, err := encodeIdentityRecord(record)
	if err != nil {
		return nil, false, err
	}

	created, err := s.redis.SetNX(ctx, s.key(address), encoded, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrIdentityRedisUnavailable, err)
	}
	if created {
		return record, true, nil
	}

	data, err := s.redis.Get(ctx, s.key(address)).Bytes()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrIdentityRedisUnavailable, err)
	}
	existing, err := decodeIdentityRecord(data)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func encodeIdentityRecord(record *IdentityRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(identityRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.FirstSeen); err != nil {
		return nil, err
	}

	if len(record.Address) > 65535 {
		return nil, errors.New("identity record address too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Address))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Address)

	return buf.Bytes(), nil
}

func decodeIdentityRecord(data []byte) (*IdentityRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != identityRecordVersionV1 {
		return nil, errors.New("invalid identity record version")
	}

	record := &IdentityRecord{}

	if err := binary.Read(reader, binary.BigEndian, &record.FirstSeen); err != nil {
		return nil, err
	}

	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, err
	}
	record.Address = string(raw)

	return record, nil
}
