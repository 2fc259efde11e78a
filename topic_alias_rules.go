package mqttendpoint

// applyOutboundTopicAlias rewrites an outgoing PUBLISH in place to use a
// topic alias, gated by cfg.AutoMapTopicAliasSend/AutoReplaceTopicAliasSend:
//
//  1. the topic is already mapped and auto-replace is enabled: send the
//     alias alone, with an empty topic name;
//  2. the topic is unmapped and auto-map is enabled: assign a fresh alias
//     (evicting the least-recently-used mapping if the table is full) and
//     send both the full topic name and the alias, so the broker learns
//     the mapping;
//  3. otherwise: send the topic unchanged, with no alias.
//
// It is a no-op under MQTT 3.1.1 or when the peer advertised a topic alias
// maximum of 0.
func applyOutboundTopicAlias(cfg *Config, s *session, version Version, pub *PublishPacket) {
	if version != V5 {
		return
	}
	mapped := s.aliases.isOutboundMapped(pub.Topic)
	if mapped && !cfg.AutoReplaceTopicAliasSend {
		return
	}
	if !mapped && !cfg.AutoMapTopicAliasSend {
		return
	}
	wireTopic, alias := s.aliases.ResolveOutbound(pub.Topic)
	if alias == 0 {
		return
	}
	pub.Topic = wireTopic
	pub.TopicAlias = alias
}

// resolveInboundTopicAlias substitutes a received PUBLISH's topic alias for
// the full topic name it was registered against, mutating pub.Topic in
// place. It returns a ProtocolErrorDetail (never nil on failure) when the
// alias exceeds the endpoint's advertised Topic Alias Maximum or refers to
// an alias that was never mapped; endpoint_state.go responds to that by
// sending DISCONNECT with ReasonTopicAliasInvalid and closing the
// transport, per the MQTT 5.0 requirement that a receiver treat an
// out-of-range alias as a protocol error.
func resolveInboundTopicAlias(s *session, version Version, pub *PublishPacket) error {
	if version != V5 || pub.TopicAlias == 0 {
		return nil
	}
	resolved, err := s.aliases.ResolveInbound(pub.Topic, pub.TopicAlias)
	if err != nil {
		return err
	}
	pub.Topic = resolved
	return nil
}
