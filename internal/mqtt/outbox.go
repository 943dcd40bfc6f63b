package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected, oldest first.
// A retained message replaces an older retained message on the same topic,
// since the broker would only keep the newest anyway.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	msgs     []bufferedMsg
	capacity int
	dropped  int // messages lost to overflow since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg bufferedMsg) {
	if msg.retained {
		for i := range o.msgs {
			if o.msgs[i].retained && o.msgs[i].topic == msg.topic {
				o.msgs[i] = msg
				return
			}
		}
	}
	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
		}
		o.dropped++
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
	}
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) drainAll() []bufferedMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]bufferedMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
