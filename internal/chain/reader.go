// internal/chain/reader.go
package chain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrShortAccountData возвращается, когда данные аккаунта
	// обрываются посреди поля.
	ErrShortAccountData = errors.New("account data truncated")

	// ErrBadOptionTag возвращается при Option-префиксе вне {0, 1}.
	ErrBadOptionTag = errors.New("bad option tag")
)

// accountReader — курсор по Borsh-данным аккаунта. Все методы проверяют
// границы; первая ошибка залипает, и дальнейшие чтения возвращают нули.
type accountReader struct {
	data []byte
	off  int
	err  error
}

func newAccountReader(data []byte) *accountReader {
	return &accountReader{data: data}
}

func (r *accountReader) fail(field string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s at offset %d", ErrShortAccountData, field, r.off)
	}
}

func (r *accountReader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail(field)
		return nil
	}
	chunk := r.data[r.off : r.off+n]
	r.off += n
	return chunk
}

func (r *accountReader) readUint8(field string) uint8 {
	chunk := r.take(1, field)
	if chunk == nil {
		return 0
	}
	return chunk[0]
}

func (r *accountReader) readUint16(field string) uint16 {
	chunk := r.take(2, field)
	if chunk == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(chunk)
}

func (r *accountReader) readUint32(field string) uint32 {
	chunk := r.take(4, field)
	if chunk == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(chunk)
}

func (r *accountReader) readUint64(field string) uint64 {
	chunk := r.take(8, field)
	if chunk == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(chunk)
}

func (r *accountReader) readInt64(field string) int64 {
	return int64(r.readUint64(field))
}

func (r *accountReader) readBool(field string) bool {
	return r.readUint8(field) != 0
}

func (r *accountReader) readPubKey(field string) solana.PublicKey {
	chunk := r.take(solana.PublicKeyLength, field)
	if chunk == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(chunk)
}

// readString читает Borsh-строку: u32 длина + байты.
func (r *accountReader) readString(field string) string {
	length := r.readUint32(field)
	if r.err != nil {
		return ""
	}
	chunk := r.take(int(length), field)
	if chunk == nil {
		return ""
	}
	return string(chunk)
}

// readOption читает префикс Option<T>: 0 — None, 1 — Some.
func (r *accountReader) readOption(field string) bool {
	tag := r.readUint8(field)
	if r.err != nil {
		return false
	}
	if tag > 1 {
		r.err = fmt.Errorf("%w: %d for %s at offset %d", ErrBadOptionTag, tag, field, r.off-1)
		return false
	}
	return tag == 1
}

// readUnixTime читает i64 секунды Unix.
func (r *accountReader) readUnixTime(field string) time.Time {
	secs := r.readInt64(field)
	if r.err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
