package mqtt

// message is a serialized publish kept for replay after a reconnect.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds messages while the broker is unreachable. When full the
// oldest message is dropped. Callers synchronize access.
type backlog struct {
	msgs    []message
	next    int
	n       int
	dropped int
}

func newBacklog(capacity int) *backlog {
	return &backlog{msgs: make([]message, capacity)}
}

func (b *backlog) add(m message) {
	if len(b.msgs) == 0 {
		b.dropped++
		return
	}
	b.msgs[b.next] = m
	b.next = (b.next + 1) % len(b.msgs)
	if b.n == len(b.msgs) {
		b.dropped++
		return
	}
	b.n++
}

// take returns the held messages oldest first along with the number dropped
// since the previous take, and empties the backlog.
func (b *backlog) take() ([]message, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.n == 0 {
		return nil, dropped
	}

	out := make([]message, 0, b.n)
	first := (b.next - b.n + len(b.msgs)) % len(b.msgs)
	for i := 0; i < b.n; i++ {
		out = append(out, b.msgs[(first+i)%len(b.msgs)])
	}
	b.next, b.n = 0, 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.n
}
