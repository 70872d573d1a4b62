package eviction

import "container/list"

// fifo evicts in insertion order. Reads and rewrites do not change a key's place.
type fifo struct {
	order *list.List
	nodes map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{order: list.New(), nodes: make(map[string]*list.Element)}
}

func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(k string) {
	if _, ok := f.nodes[k]; ok {
		return
	}
	f.nodes[k] = f.order.PushBack(k)
}

func (f *fifo) Evict() string {
	el := f.order.Front()
	if el == nil {
		return ""
	}
	k := f.order.Remove(el).(string)
	delete(f.nodes, k)
	return k
}

func (f *fifo) Remove(k string) {
	if el, ok := f.nodes[k]; ok {
		f.order.Remove(el)
		delete(f.nodes, k)
	}
}

func (f *fifo) Reset() {
	f.order.Init()
	f.nodes = make(map[string]*list.Element)
}
