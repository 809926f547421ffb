package cache

// lruNode is an element of an lruList. It keeps its key so the owning map
// entry can be deleted on eviction.
type lruNode struct {
	key        string
	prev, next *lruNode
}

// lruList orders keys from most recently used (head) to least recently
// used (tail). It is not safe for concurrent use.
type lruList struct {
	head, tail *lruNode
	len        int
}

// pushFront inserts key as the most recently used entry.
func (l *lruList) pushFront(key string) *lruNode {
	n := &lruNode{key: key, next: l.head}
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.len++
	return n
}

// moveToFront marks n as the most recently used entry.
func (l *lruList) moveToFront(n *lruNode) {
	if n == l.head {
		return
	}
	l.unlink(n)
	n.next = l.head
	l.head.prev = n
	l.head = n
	l.len++
}

// removeOldest unlinks the least recently used entry and returns its key.
func (l *lruList) removeOldest() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	n := l.tail
	l.unlink(n)
	return n.key, true
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
