package redis

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/credgate/account"
)

const recordVersionV1 = 1

const (
	flagVerified byte = 1 << iota
	flagResetChallenge
	flagVerifyChallenge
)

var errCorruptRecord = errors.New("corrupt account record")

func encodeRecord(rec account.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)

	var flags byte
	if rec.AccountVerified {
		flags |= flagVerified
	}
	if rec.ResetChallenge != nil {
		flags |= flagResetChallenge
	}
	if rec.VerifyChallenge != nil {
		flags |= flagVerifyChallenge
	}
	buf.WriteByte(flags)

	for _, s := range []string{rec.ID, rec.Email, rec.Name, rec.PasswordHash} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}
	for _, c := range []*account.Challenge{rec.ResetChallenge, rec.VerifyChallenge} {
		if c == nil {
			continue
		}
		if err := writeString(&buf, c.Code); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAtMillis); err != nil {
			return nil, err
		}
	}
	for _, t := range []time.Time{rec.CreatedAt, rec.UpdatedAt} {
		if err := binary.Write(&buf, binary.BigEndian, t.UnixNano()); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (account.Record, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return account.Record{}, errCorruptRecord
	}
	if version != recordVersionV1 {
		return account.Record{}, errCorruptRecord
	}
	flags, err := r.ReadByte()
	if err != nil {
		return account.Record{}, errCorruptRecord
	}

	var rec account.Record
	rec.AccountVerified = flags&flagVerified != 0
	for _, dst := range []*string{&rec.ID, &rec.Email, &rec.Name, &rec.PasswordHash} {
		if *dst, err = readString(r); err != nil {
			return account.Record{}, errCorruptRecord
		}
	}

	readChallenge := func() (*account.Challenge, error) {
		var c account.Challenge
		if c.Code, err = readString(r); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &c.ExpiresAtMillis); err != nil {
			return nil, err
		}
		return &c, nil
	}
	if flags&flagResetChallenge != 0 {
		if rec.ResetChallenge, err = readChallenge(); err != nil {
			return account.Record{}, errCorruptRecord
		}
	}
	if flags&flagVerifyChallenge != 0 {
		if rec.VerifyChallenge, err = readChallenge(); err != nil {
			return account.Record{}, errCorruptRecord
		}
	}

	var created, updated int64
	if err := binary.Read(r, binary.BigEndian, &created); err != nil {
		return account.Record{}, errCorruptRecord
	}
	if err := binary.Read(r, binary.BigEndian, &updated); err != nil {
		return account.Record{}, errCorruptRecord
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()

	return rec, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("account record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
