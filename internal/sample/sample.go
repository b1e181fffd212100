// Package sample is the employee relation the command line tools seed,
// query and benchmark.
package sample

import (
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/go-faker/faker/v4"
)

const Relation = "emp"

// Byte offsets of the int32 attributes of an employee tuple.
const (
	OffID     int32 = 0
	OffAge    int32 = 4
	OffSalary int32 = 8
	offName         = 12
)

type Employee struct {
	ID     int32
	Age    int32
	Salary int32
	Name   string
}

func (e Employee) Encode() []byte {
	buf := make([]byte, offName, offName+len(e.Name))
	binary.LittleEndian.PutUint32(buf[OffID:], uint32(e.ID))
	binary.LittleEndian.PutUint32(buf[OffAge:], uint32(e.Age))
	binary.LittleEndian.PutUint32(buf[OffSalary:], uint32(e.Salary))
	return append(buf, e.Name...)
}

func Decode(data []byte) (Employee, error) {
	if len(data) < offName {
		return Employee{}, fmt.Errorf("employee tuple of %d bytes", len(data))
	}
	return Employee{
		ID:     int32(binary.LittleEndian.Uint32(data[OffID:])),
		Age:    int32(binary.LittleEndian.Uint32(data[OffAge:])),
		Salary: int32(binary.LittleEndian.Uint32(data[OffSalary:])),
		Name:   string(data[offName:]),
	}, nil
}

// Fake makes an employee with a generated name.
func Fake(id int32, r *rand.Rand) Employee {
	return Employee{
		ID:     id,
		Age:    18 + int32(r.Intn(50)),
		Salary: 30000 + int32(r.Intn(120))*1000,
		Name:   faker.Name(),
	}
}

func (e Employee) String() string {
	return fmt.Sprintf("#%d %s age=%d salary=%d", e.ID, e.Name, e.Age, e.Salary)
}
