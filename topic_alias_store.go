package mqttendpoint

import "container/list"

// topicAliasStore tracks the MQTT 5.0 topic alias mappings in both
// directions. Outbound aliases are ones this endpoint assigns when sending
// PUBLISH to the broker, bounded by the broker's advertised topic alias
// maximum and evicted least-recently-used when that bound is reached.
// Inbound aliases are assigned by the broker and simply substituted on
// receive; this endpoint does not evict those since it never originates
// them.
type topicAliasStore struct {
	outboundMax uint16
	inboundMax  uint16

	outboundNext   uint16
	outboundByTopic map[string]*list.Element // topic -> lru element
	outboundByAlias map[uint16]*list.Element
	outboundLRU     *list.List // front = most recently used

	inbound map[uint16]string
}

type outboundAliasEntry struct {
	topic string
	alias uint16
}

func newTopicAliasStore(outboundMax, inboundMax uint16) *topicAliasStore {
	return &topicAliasStore{
		outboundMax:     outboundMax,
		inboundMax:       inboundMax,
		outboundByTopic: make(map[string]*list.Element),
		outboundByAlias: make(map[uint16]*list.Element),
		outboundLRU:     list.New(),
		inbound:         make(map[uint16]string),
	}
}

// ResolveOutbound decides how to represent topic on an outgoing PUBLISH: if
// an alias is already mapped, it returns that alias and an empty topic (the
// "auto-replace" case, substituting the alias for the full topic name on
// the wire). Otherwise, if the outbound alias table has room (or an entry
// can be evicted), it assigns a fresh alias, returns both the full topic
// name and the alias (the "auto-map" case, so the broker learns the
// mapping), and marks it most-recently-used. If outboundMax is 0, aliasing
// is disabled entirely and it always returns (topic, 0).
func (s *topicAliasStore) ResolveOutbound(topic string) (wireTopic string, alias uint16) {
	if s.outboundMax == 0 {
		return topic, 0
	}
	if el, ok := s.outboundByTopic[topic]; ok {
		s.outboundLRU.MoveToFront(el)
		return "", el.Value.(*outboundAliasEntry).alias
	}

	var assigned uint16
	if uint16(s.outboundLRU.Len()) < s.outboundMax {
		s.outboundNext++
		assigned = s.outboundNext
	} else {
		// Evict the least-recently-used mapping to make room.
		back := s.outboundLRU.Back()
		evicted := back.Value.(*outboundAliasEntry)
		s.outboundLRU.Remove(back)
		delete(s.outboundByTopic, evicted.topic)
		delete(s.outboundByAlias, evicted.alias)
		assigned = evicted.alias
	}

	entry := &outboundAliasEntry{topic: topic, alias: assigned}
	el := s.outboundLRU.PushFront(entry)
	s.outboundByTopic[topic] = el
	s.outboundByAlias[assigned] = el
	return topic, assigned
}

// isOutboundMapped reports whether topic already has an assigned outbound
// alias, without mutating LRU order or assigning anything.
func (s *topicAliasStore) isOutboundMapped(topic string) bool {
	_, ok := s.outboundByTopic[topic]
	return ok
}

func (s *topicAliasStore) touchOutbound(alias uint16) {
	if el, ok := s.outboundByAlias[alias]; ok {
		s.outboundLRU.MoveToFront(el)
	}
}

func (s *topicAliasStore) ClearOutbound() {
	s.outboundByTopic = make(map[string]*list.Element)
	s.outboundByAlias = make(map[uint16]*list.Element)
	s.outboundLRU = list.New()
	s.outboundNext = 0
}

// ResolveInbound substitutes a received PUBLISH's topic alias for the full
// topic name, learning the mapping if the topic name was carried
// explicitly alongside the alias (the combination MQTT 5.0 uses to
// register a new inbound alias). It returns ErrProtocolError wrapped
// appropriately if alias exceeds inboundMax or an unmapped alias arrives
// alone; endpoint_state.go turns that into a DISCONNECT with reason
// TopicAliasInvalid.
func (s *topicAliasStore) ResolveInbound(topic string, alias uint16) (resolved string, err error) {
	if alias == 0 {
		return topic, nil
	}
	if alias > s.inboundMax {
		return "", newProtocolError("inbound topic alias exceeds the advertised maximum", nil)
	}
	if topic != "" {
		s.inbound[alias] = topic
		return topic, nil
	}
	mapped, ok := s.inbound[alias]
	if !ok {
		return "", newProtocolError("inbound topic alias has no prior mapping", nil)
	}
	return mapped, nil
}

func (s *topicAliasStore) ClearInbound() {
	s.inbound = make(map[uint16]string)
}

func (s *topicAliasStore) Clear() {
	s.ClearOutbound()
	s.ClearInbound()
}
