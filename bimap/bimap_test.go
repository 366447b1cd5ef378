package bimap

import (
	"testing"

	"github.com/epiclabs-io/ut"
)

func TestBiMap(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	b := NewBiMap()
	t.Equals(0, b.Size())

	b.Insert("cool", byte(1))
	b.Insert("dry", byte(2))
	t.Equals(2, b.Size())

	t.Assert(b.Exists("cool"), "inserted key should exist")
	t.Assert(!b.Exists("heat"), "missing key should not exist")
	t.Assert(b.ExistsInverse(byte(2)), "inserted value should exist")
	t.Assert(!b.ExistsInverse(byte(9)), "missing value should not exist")

	v, ok := b.Get("cool")
	t.Assert(ok, "Get should find inserted key")
	t.Equals(byte(1), v)

	k, ok := b.GetInverse(byte(2))
	t.Assert(ok, "GetInverse should find inserted value")
	t.Equals("dry", k)

	_, ok = b.Get(byte(1))
	t.Assert(!ok, "values are not keys")

	b.Delete("dry")
	t.Equals(1, b.Size())
	t.Assert(!b.ExistsInverse(byte(2)), "deleting the key removes the value too")
	b.Delete("dry")
	t.Equals(1, b.Size())

	b.DeleteInverse(byte(1))
	t.Equals(0, b.Size())
	t.Assert(!b.Exists("cool"), "deleting the value removes the key too")
}

func TestBiMapNew(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	b := New(map[interface{}]interface{}{
		"3": byte(3),
		"4": byte(4),
	})
	t.Equals(2, b.Size())
	t.Equals(map[interface{}]interface{}{"3": byte(3), "4": byte(4)}, b.GetForwardMap())
	t.Equals(map[interface{}]interface{}{byte(3): "3", byte(4): "4"}, b.GetInverseMap())
}

func TestBiMapImmutable(tx *testing.T) {
	t := ut.BeginTest(tx, false)
	defer t.FinishTest()

	b := NewBiMap()
	b.Insert("auto", byte(10))
	b.MakeImmutable()

	mustPanic := func(f func()) {
		defer func() {
			t.Assert(recover() != nil, "mutating an immutable map should panic")
		}()
		f()
	}
	mustPanic(func() { b.Insert("off", byte(0)) })
	mustPanic(func() { b.Delete("auto") })
	mustPanic(func() { b.DeleteInverse(byte(10)) })
	t.Equals(1, b.Size())
}
