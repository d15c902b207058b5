package value

import "sort"

// indexThreshold is the size above which an object keeps a key index.
// Smaller objects are scanned linearly.
const indexThreshold = 8

// Entry is a key/value pair of an object.
type Entry struct {
	Key   string
	Value Value
}

// Object is an insertion-ordered map from string keys to values.
//
// Objects are copy-on-write: Set, Delete and Merge return new objects and
// leave the receiver untouched.
type Object struct {
	entries []Entry
	index   map[string]int
}

func (*Object) Kind() Kind { return KindObject }

// NewObject builds an object from entries. When a key occurs more than once
// the first occurrence keeps its position and the last value wins.
func NewObject(entries ...Entry) *Object {
	o := &Object{entries: make([]Entry, 0, len(entries))}
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := seen[e.Key]; ok {
			o.entries[i].Value = e.Value
			continue
		}
		seen[e.Key] = len(o.entries)
		o.entries = append(o.entries, e)
	}
	if len(o.entries) > indexThreshold {
		o.index = seen
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

func (o *Object) find(key string) int {
	if o == nil {
		return -1
	}
	if o.index != nil {
		if i, ok := o.index[key]; ok {
			return i
		}
		return -1
	}
	for i := range o.entries {
		if o.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if i := o.find(key); i >= 0 {
		return o.entries[i].Value, true
	}
	return nil, false
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	return o.find(key) >= 0
}

// Entries returns the entries in insertion order. The slice is shared and
// must not be modified.
func (o *Object) Entries() []Entry {
	if o == nil {
		return nil
	}
	return o.entries
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	keys := make([]string, o.Len())
	for i, e := range o.Entries() {
		keys[i] = e.Key
	}
	return keys
}

// SortedKeys returns the keys in byte order.
func (o *Object) SortedKeys() []string {
	keys := o.Keys()
	sort.Strings(keys)
	return keys
}

// Values returns the values in insertion order.
func (o *Object) Values() []Value {
	vals := make([]Value, o.Len())
	for i, e := range o.Entries() {
		vals[i] = e.Value
	}
	return vals
}

func (o *Object) withEntries(entries []Entry) *Object {
	n := &Object{entries: entries}
	if len(entries) > indexThreshold {
		n.index = make(map[string]int, len(entries))
		for i, e := range entries {
			n.index[e.Key] = i
		}
	}
	return n
}

// Set returns a copy of o with key bound to v. An existing key keeps its
// position.
func (o *Object) Set(key string, v Value) *Object {
	i := o.find(key)
	entries := make([]Entry, o.Len(), o.Len()+1)
	copy(entries, o.Entries())
	if i >= 0 {
		entries[i].Value = v
		n := &Object{entries: entries, index: o.index}
		return n
	}
	return o.withEntries(append(entries, Entry{Key: key, Value: v}))
}

// Delete returns a copy of o without key.
func (o *Object) Delete(key string) *Object {
	i := o.find(key)
	if i < 0 {
		return o
	}
	entries := make([]Entry, 0, o.Len()-1)
	entries = append(entries, o.entries[:i]...)
	entries = append(entries, o.entries[i+1:]...)
	return o.withEntries(entries)
}

// Merge returns the shallow merge of o and other. Keys of other override
// keys of o.
func (o *Object) Merge(other *Object) *Object {
	if other.Len() == 0 {
		return o
	}
	if o.Len() == 0 {
		return other
	}
	entries := make([]Entry, 0, o.Len()+other.Len())
	entries = append(entries, o.entries...)
	entries = append(entries, other.entries...)
	return NewObject(entries...)
}

// DeepMerge merges other into o recursively: when both sides hold an object
// under the same key, the objects are merged, otherwise other wins.
func (o *Object) DeepMerge(other *Object) *Object {
	res := o
	for _, e := range other.Entries() {
		if l, ok := res.Get(e.Key); ok {
			lo, lok := l.(*Object)
			ro, rok := e.Value.(*Object)
			if lok && rok {
				res = res.Set(e.Key, lo.DeepMerge(ro))
				continue
			}
		}
		res = res.Set(e.Key, e.Value)
	}
	return res
}
