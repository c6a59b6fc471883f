// Package main runs the headless Skirmish client.
//
// Architecture overview:
// - One websocket connection to the game server (binary + JSON channels)
// - A fixed-timestep simulation at 30Hz with per-frame interpolation
// - Inbound high-frequency messages decode on the read goroutine and run
//   on the frame loop via a bounded drain queue
// - Low-frequency room events dispatch inline into the session state
//
// Connection flow:
// 1. Dial the server websocket
// 2. Send JoinRoom with the session id and player name (repeated after
//    every reconnect)
// 3. Server answers RoomState with the assigned entity id
// 4. Client streams one input frame per physics step; server streams
//    transforms, projectile spawns, and room events back
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/config"
	"github.com/skirmish/client/internal/game"
	"github.com/skirmish/client/internal/netclient"
	"github.com/skirmish/client/internal/protocol"
	"github.com/skirmish/client/internal/session"
)

// idleDevice is the headless input source: no movement, no actions.
type idleDevice struct{}

func (idleDevice) Sample() game.InputState { return game.InputState{} }

// app wires the connection, session, and simulation together and owns
// the frame loop.
type app struct {
	cfg   *config.ClientConfig
	clock clockwork.Clock
	codec *protocol.Codec

	client *netclient.Client
	sess   *session.Session
	sim    *game.Simulation

	// Low-frequency JSON handlers run on the read goroutine; world
	// mutations cross to the frame loop through these channels.
	joins  chan protocol.RoomState
	leaves chan uint32
}

func main() {
	// .env is optional; absence is the common case in production.
	godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	cfg := config.LoadClientConfig()

	log.Info().
		Str("server", cfg.ServerURL).
		Str("player", cfg.PlayerName).
		Int("physicsRate", config.PhysicsTickRate).
		Int("targetFPS", cfg.TargetFPS).
		Msg("skirmish client starting")

	a := newApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err := a.run(ctx); err != nil {
		log.Fatal().Err(err).Msg("client error")
	}
}

func newApp(cfg *config.ClientConfig) *app {
	a := &app{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		codec:  protocol.NewCodec(),
		joins:  make(chan protocol.RoomState, 1),
		leaves: make(chan uint32, 16),
	}

	netCfg := netclient.DefaultConfig(cfg.ServerURL)
	netCfg.DrainBudget = cfg.DrainBudget
	netCfg.DebugLatency = time.Duration(cfg.DebugLatencyMS) * time.Millisecond
	a.client = netclient.New(netCfg, a.clock, netclient.WebsocketDialer)

	a.sess = session.New(cfg.PlayerName, a.clock)

	ordering := game.OrderingArrival
	if cfg.RejectStaleSnapshots {
		ordering = game.OrderingRejectStale
	}

	a.sim = game.NewSimulation(game.SimulationConfig{
		FixedStep:   config.PhysicsTickInterval,
		DrainBudget: cfg.DrainBudget,
		Ordering:    ordering,
		Transmit:    a.transmitInput,
		Drain:       a.client.Drain,
		Device:      idleDevice{},
		Geometry:    game.FlatGround{},
		Clock:       a.clock,
		OnHit: func(hit game.HitReport) {
			log.Debug().
				Uint32("target", hit.TargetID).
				Bool("headshot", hit.Region == game.HitHead).
				Msg("local projectile hit")
		},
	})

	a.subscribe()
	return a
}

// subscribe registers every opcode handler. Binary handlers run on the
// frame loop (via the drain queue); JSON handlers run on the read
// goroutine and touch only the session or hand off through channels.
func (a *app) subscribe() {
	a.client.Subscribe(protocol.OpTransform, func(msg any) {
		a.sim.HandleTransform(msg.(protocol.TransformSnapshot))
	})
	a.client.Subscribe(protocol.OpProjectileSpawn, func(msg any) {
		a.sim.HandleProjectileSpawn(msg.(protocol.ProjectileSpawn))
	})
	a.client.Subscribe(protocol.OpProjectileBatch, func(msg any) {
		a.sim.HandleProjectileBatch(msg.([]protocol.ProjectileSpawn))
	})
	a.client.Subscribe(protocol.OpProjectileDestroy, func(msg any) {
		a.sim.HandleProjectileDestroy(msg.(protocol.ProjectileDestroy).ProjectileID)
	})
	a.client.Subscribe(protocol.OpPong, func(msg any) {
		a.sess.HandlePong(msg.(protocol.PongFrame))
	})

	a.client.Subscribe(protocol.OpRoomState, func(msg any) {
		state := msg.(protocol.RoomState)
		a.sess.HandleRoomState(state)
		select {
		case a.joins <- state:
		default:
		}
	})
	a.client.Subscribe(protocol.OpPlayerJoined, func(msg any) {
		ev := msg.(protocol.PlayerJoinedEvent)
		a.sess.HandlePlayerJoined(ev)
		log.Info().Str("name", ev.Name).Uint32("entity", ev.EntityID).Msg("player joined")
	})
	a.client.Subscribe(protocol.OpPlayerLeft, func(msg any) {
		ev := msg.(protocol.PlayerLeftEvent)
		a.sess.HandlePlayerLeft(ev)
		select {
		case a.leaves <- ev.EntityID:
		default:
		}
	})
	a.client.Subscribe(protocol.OpChat, func(msg any) {
		chat := msg.(protocol.ChatMessage)
		a.sess.HandleChat(chat)
		log.Info().Str("from", chat.Name).Str("text", chat.Text).Msg("chat")
	})
	a.client.Subscribe(protocol.OpCombatEvent, func(msg any) {
		ev := msg.(protocol.CombatEvent)
		a.sess.HandleCombatEvent(ev)
		if ev.Lethal {
			log.Info().Uint32("attacker", ev.AttackerID).Uint32("victim", ev.VictimID).Msg("kill")
		}
	})
	a.client.Subscribe(protocol.OpEconomyUpdate, func(msg any) {
		a.sess.HandleEconomyUpdate(msg.(protocol.EconomyUpdate))
	})
	a.client.Subscribe(protocol.OpError, func(msg any) {
		env := msg.(protocol.ErrorEnvelope)
		log.Warn().Int("code", env.Code).Str("message", env.Message).Msg("server error")
	})

	a.client.OnConnect(func() {
		data, err := protocol.EncodeJSON(protocol.OpJoinRoom, a.sess.JoinRequest())
		if err != nil {
			log.Error().Err(err).Msg("encoding join request")
			return
		}
		a.client.Send(data)
	})
}

// transmitInput frames and sends one input sample. Called once per
// physics step by the simulation.
func (a *app) transmitInput(frame protocol.InputFrame) {
	a.client.Send(a.codec.EncodeInput(frame))
}

// run drives the frame loop until the context is cancelled.
func (a *app) run(ctx context.Context) error {
	if err := a.client.Connect(ctx); err != nil {
		return err
	}
	defer a.client.Close()

	frame := a.clock.NewTicker(time.Second / time.Duration(a.cfg.TargetFPS))
	defer frame.Stop()
	ping := a.clock.NewTicker(2 * time.Second)
	defer ping.Stop()
	report := a.clock.NewTicker(30 * time.Second)
	defer report.Stop()

	last := a.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil

		case now := <-frame.Chan():
			a.applyRoomChanges()
			a.sim.Advance(now.Sub(last).Seconds())
			last = now

		case <-ping.Chan():
			if a.client.Connected() {
				a.client.Send(a.codec.EncodePing(a.sess.PingSent()))
			}

		case <-report.Chan():
			t := a.client.Telemetry()
			log.Info().
				Uint64("handled", t.MessagesHandled).
				Uint64("evicted", t.QueueEvictions).
				Uint64("malformed", t.MalformedDropped).
				Uint64("reconnects", t.Reconnects).
				Dur("rtt", a.sess.RTT()).
				Int("entities", a.sim.World().EntityCount()).
				Msg("telemetry")
		}
	}
}

// applyRoomChanges folds roster events into the world on the frame
// goroutine, which is the only goroutine allowed to mutate it.
func (a *app) applyRoomChanges() {
	for {
		select {
		case state := <-a.joins:
			a.sim.SetLocalEntity(state.LocalEntityID, game.Vec3{})
		case id := <-a.leaves:
			a.sim.HandlePlayerLeft(id)
		default:
			return
		}
	}
}
