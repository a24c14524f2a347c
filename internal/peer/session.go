package peer

import (
	"context"
	"encoding/json"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

const probeChannelLabel = "rendezvous-probe"

// Phase is a step of the probe as seen from one side.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseNegotiating
	PhaseMeasuring
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting for peer"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseMeasuring:
		return "measuring round trip"
	default:
		return "unknown"
	}
}

// Result describes a finished probe.
type Result struct {
	// Initiator is true for the peer the server asked to create the offer.
	Initiator bool
	RoundTrip time.Duration
}

// Session negotiates a WebRTC data channel with the paired peer through the
// signaling server and measures one ping round trip over it.
type Session struct {
	client  *Client
	handler *Handler
	pc      *pion.PeerConnection
	log     zerolog.Logger

	localCandidates chan pion.ICECandidateInit
	channelOpen     chan *pion.DataChannel
	frames          chan inbound
	failed          chan error
	closed          chan struct{}

	pending   []pion.ICECandidateInit
	remoteSet bool

	onPhase func(Phase)
	phase   Phase
}

// inbound is a probe frame together with the channel it arrived on.
type inbound struct {
	frame Frame
	dc    *pion.DataChannel
}

// NewPeerConnection creates a peer connection using the given STUN servers.
func NewPeerConnection(stunServers []string) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if len(stunServers) > 0 {
		iceServers = append(iceServers, pion.ICEServer{URLs: stunServers})
	}

	// Loopback candidates let two peers on one machine, or in a sandbox
	// with no other interface, still connect.
	se := pion.SettingEngine{}
	se.SetIncludeLoopbackCandidate(true)
	api := pion.NewAPI(pion.WithSettingEngine(se))

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// NewSession creates a probe session over an already connected client.
func NewSession(client *Client, handler *Handler, stunServers []string, logger zerolog.Logger) (*Session, error) {
	pc, err := NewPeerConnection(stunServers)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:          client,
		handler:         handler,
		pc:              pc,
		log:             logger,
		localCandidates: make(chan pion.ICECandidateInit, 64),
		channelOpen:     make(chan *pion.DataChannel, 1),
		frames:          make(chan inbound, 8),
		failed:          make(chan error, 1),
		closed:          make(chan struct{}),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		select {
		case s.localCandidates <- c.ToJSON():
		case <-s.closed:
		}
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.log.Debug().Str("state", state.String()).Msg("peer connection state")
		if state == pion.PeerConnectionStateFailed {
			select {
			case s.failed <- NewError("peer connection", ErrConnectionClosed):
			default:
			}
		}
	})

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		s.attach(dc)
	})

	return s, nil
}

// OnPhase registers fn to be called from Run whenever the probe moves to a
// new phase. It must be set before Run.
func (s *Session) OnPhase(fn func(Phase)) {
	s.onPhase = fn
}

func (s *Session) enter(p Phase) {
	if p == s.phase {
		return
	}
	s.phase = p
	if s.onPhase != nil {
		s.onPhase(p)
	}
}

// Run drives negotiation until this side has both measured a round trip and
// answered the peer's ping, or until ctx is done.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	gotPong, answeredPing := false, false

	for {
		select {
		case <-ctx.Done():
			return nil, WrapError("probe", ErrTimeout, ctx.Err().Error())

		case <-s.handler.Closed:
			return nil, NewError("probe", ErrConnectionClosed)

		case msg := <-s.handler.Error:
			return nil, WrapError("probe", ErrServerError, msg)

		case <-s.handler.PeerLeft:
			return nil, NewError("probe", ErrPeerLeft)

		case err := <-s.failed:
			return nil, err

		case <-s.handler.Negotiate:
			result.Initiator = true
			s.enter(PhaseNegotiating)
			if err := s.startOffer(); err != nil {
				return nil, err
			}

		case sdp := <-s.handler.Offer:
			s.enter(PhaseNegotiating)
			if err := s.answer(sdp); err != nil {
				return nil, err
			}

		case sdp := <-s.handler.Answer:
			if err := s.acceptAnswer(sdp); err != nil {
				return nil, err
			}

		case raw := <-s.handler.Candidate:
			if err := s.addRemoteCandidate(raw); err != nil {
				s.log.Warn().Err(err).Msg("ignoring remote candidate")
			}

		case c := <-s.localCandidates:
			if err := s.sendJSON(signaling.MessageTypeICECandidate, c); err != nil {
				return nil, err
			}

		case dc := <-s.channelOpen:
			s.enter(PhaseMeasuring)
			if err := s.sendPing(dc); err != nil {
				return nil, err
			}

		case in := <-s.frames:
			f, dc := in.frame, in.dc
			var p PingPayload
			if err := f.DecodePayload(&p); err != nil {
				return nil, NewError("decode probe frame", err)
			}
			switch f.Type {
			case FrameTypePing:
				data, err := EncodeFrame(FrameTypePong, p)
				if err != nil {
					return nil, NewError("encode pong", err)
				}
				if err := dc.Send(data); err != nil {
					return nil, NewError("send pong", err)
				}
				answeredPing = true
			case FrameTypePong:
				result.RoundTrip = p.RoundTrip(time.Now())
				gotPong = true
			default:
				return nil, WrapError("probe", ErrUnexpectedFrame, f.Type)
			}
		}

		if gotPong && answeredPing {
			return result, nil
		}
	}
}

// Close tears down the peer connection.
func (s *Session) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
		close(s.closed)
	}
	return s.pc.Close()
}

func (s *Session) attach(dc *pion.DataChannel) {
	dc.OnOpen(func() {
		select {
		case s.channelOpen <- dc:
		case <-s.closed:
		}
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		f, err := DecodeFrame(msg.Data)
		if err != nil {
			s.log.Warn().Err(err).Msg("undecodable probe frame")
			return
		}
		select {
		case s.frames <- inbound{frame: f, dc: dc}:
		case <-s.closed:
		}
	})
}

func (s *Session) startOffer() error {
	dc, err := s.pc.CreateDataChannel(probeChannelLabel, nil)
	if err != nil {
		return NewError("create data channel", err)
	}
	s.attach(dc)

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}
	return s.sendJSON(signaling.MessageTypeSendSDPOffer, s.pc.LocalDescription())
}

func (s *Session) answer(raw string) error {
	var offer pion.SessionDescription
	if err := json.Unmarshal([]byte(raw), &offer); err != nil {
		return NewError("parse offer", err)
	}
	if err := s.setRemote(offer); err != nil {
		return err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}
	return s.sendJSON(signaling.MessageTypeSendSDPAnswer, s.pc.LocalDescription())
}

func (s *Session) acceptAnswer(raw string) error {
	var answer pion.SessionDescription
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return NewError("parse answer", err)
	}
	return s.setRemote(answer)
}

// setRemote applies a remote description and flushes candidates that
// arrived before it.
func (s *Session) setRemote(desc pion.SessionDescription) error {
	if err := s.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", err)
	}
	s.remoteSet = true

	for _, c := range s.pending {
		if err := s.pc.AddICECandidate(c); err != nil {
			s.log.Warn().Err(err).Msg("ignoring buffered candidate")
		}
	}
	s.pending = nil
	return nil
}

func (s *Session) addRemoteCandidate(raw string) error {
	var c pion.ICECandidateInit
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return NewError("parse ICE candidate", err)
	}
	if !s.remoteSet {
		s.pending = append(s.pending, c)
		return nil
	}
	if err := s.pc.AddICECandidate(c); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (s *Session) sendPing(dc *pion.DataChannel) error {
	data, err := EncodeFrame(FrameTypePing, PingPayload{Seq: 1, SentAt: time.Now().UnixMicro()})
	if err != nil {
		return NewError("encode ping", err)
	}
	if err := dc.Send(data); err != nil {
		return NewError("send ping", err)
	}
	return nil
}

func (s *Session) sendJSON(msgType string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return NewError("encode "+msgType, err)
	}
	return s.client.Send(signaling.NewEnvelope(msgType, string(b)))
}
