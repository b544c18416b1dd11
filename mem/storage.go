package mem

import (
	"fmt"
)

// Capacity units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// A Storage keeps bytes in fixed-size units. Units that are never touched are
// never allocated and read as zeros.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		unitSize: 4 * KB,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) unit(address uint64) ([]byte, error) {
	if address >= s.capacity {
		return nil, fmt.Errorf(
			"address 0x%x beyond storage capacity 0x%x", address, s.capacity)
	}

	base := address - address%s.unitSize

	unit, ok := s.data[base]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[base] = unit
	}

	return unit, nil
}

// Read returns a copy of length bytes starting from address.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	res := make([]byte, length)

	err := s.walk(address, length, func(unit []byte, offset, done, n uint64) {
		copy(res[done:done+n], unit[offset:offset+n])
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Write stores data starting from address.
func (s *Storage) Write(address uint64, data []byte) error {
	return s.walk(address, uint64(len(data)),
		func(unit []byte, offset, done, n uint64) {
			copy(unit[offset:offset+n], data[done:done+n])
		})
}

func (s *Storage) walk(
	address, length uint64,
	f func(unit []byte, offset, done, n uint64),
) error {
	done := uint64(0)

	for done < length {
		curr := address + done

		unit, err := s.unit(curr)
		if err != nil {
			return err
		}

		offset := curr % s.unitSize
		n := min(s.unitSize-offset, length-done)

		f(unit, offset, done, n)
		done += n
	}

	return nil
}
