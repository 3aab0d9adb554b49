// Copyright (c) 2026 by Koanworks.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koanworks/presence/anim"
	"github.com/koanworks/presence/config"
	"github.com/koanworks/presence/discovery"
	"github.com/koanworks/presence/geo"
	"github.com/koanworks/presence/peerlink"
	"github.com/koanworks/presence/presence"
	psignal "github.com/koanworks/presence/signal"
	"github.com/koanworks/presence/snapshot"
)

// demoAction is a clip whose playback is just printed.
type demoAction struct {
	name string
}

func (a *demoAction) Play() { fmt.Printf("clip %q playing\n", a.name) }
func (a *demoAction) Stop() {}

func (a *demoAction) SetWeight(_ float64) {}

type demoLoader struct{}

func (demoLoader) Load(_ context.Context, modelID string) (presence.Asset, error) {
	return presence.Asset{
		Renderable: modelID,
		Clips: []presence.Clip{
			{Name: anim.IdleName, Action: &demoAction{name: anim.IdleName}},
			{Name: "walking", Action: &demoAction{name: "walking"}},
			{Name: "jump", Action: &demoAction{name: "jump"}},
		},
	}, nil
}

// consoleScene prints the reconciled pose a few times a second.
type consoleScene struct {
	lastPrint time.Time
}

func (s *consoleScene) AddRenderable(peerID string, r presence.Renderable) {
	fmt.Printf("scene: added %s (%v)\n", peerID, r)
}

func (s *consoleScene) SetTransform(peerID string, pos geo.Vec3, rot geo.Quat) {
	if time.Since(s.lastPrint) < 500*time.Millisecond {
		return
	}
	s.lastPrint = time.Now()
	fmt.Printf("scene: %s at (%.2f, %.2f, %.2f) yaw=%.2f\n",
		peerID, pos.X, pos.Y, pos.Z, rot.Yaw())
}

func (s *consoleScene) RemoveRenderable(peerID string) {
	fmt.Printf("scene: removed %s\n", peerID)
}

type consoleNotifier struct{}

func (consoleNotifier) PeerJoined(peerID string) { fmt.Printf("peer %s joined\n", peerID) }
func (consoleNotifier) PeerLeft(peerID string)   { fmt.Printf("peer %s left\n", peerID) }

// demo connects two peers over an in-process signaling channel and has
// one of them walk a circle while the other reconciles and prints it.
func demo(ctx context.Context, cfg config.Config) error {
	sigA, sigB := psignal.NewLoopbackPair()

	// Both ends run in this process, so host candidates are enough.
	linkCfg := peerlink.Config{
		STUNServers:    []string{},
		ConnectTimeout: cfg.Network.ConnectTimeout,
	}

	alice := peerlink.New(sigA, peerlink.RoleInitiator,
		peerlink.WithLocalID("alice"),
		peerlink.WithConfig(linkCfg))
	bob := peerlink.New(sigB, peerlink.RoleResponder,
		peerlink.WithLocalID("bob"),
		peerlink.WithConfig(linkCfg))

	defer alice.Close()
	defer bob.Close()

	watcher := presence.New(bob, demoLoader{},
		presence.WithConfig(cfg),
		presence.WithScene(&consoleScene{}),
		presence.WithNotifier(consoleNotifier{}))
	walker := presence.New(alice, demoLoader{},
		presence.WithConfig(cfg),
		presence.WithNotifier(consoleNotifier{}))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return watcher.Start(gCtx) })
	g.Go(func() error { return walker.Start(gCtx) })

	connect, connectCtx := errgroup.WithContext(gCtx)
	connect.Go(func() error { return alice.Connect(connectCtx) })
	connect.Go(func() error { return bob.Connect(connectCtx) })
	if err := connect.Wait(); err != nil {
		return fmt.Errorf("failed to connect peers: %w", err)
	}

	fmt.Println("peers connected, walking a circle; press Ctrl+C to stop")

	g.Go(func() error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()

		var t float64
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				t += 0.05

				snap := snapshot.New(time.Now())
				snap.Position = geo.Vec3{
					X: 3 * math.Cos(t),
					Z: 3 * math.Sin(t),
				}
				snap.Rotation = snapshot.Rotation{
					Kind: snapshot.RotationYaw,
					Yaw:  t + math.Pi/2,
				}
				if int(t)%4 == 0 {
					snap.Animation = "idle"
				} else {
					snap.Animation = "running" // folds onto walking
				}

				// Losing a snapshot is fine; the next one corrects it.
				if err := walker.Publish(snap); err != nil {
					slog.Debug("failed to publish snapshot", "error", err.Error())
				}
			}
		}
	})

	err := g.Wait()
	fmt.Printf("inbound rate %.1f/s, jitter %v\n", watcher.Rate(), watcher.Jitter())
	return err
}

func announce(ctx context.Context, cfg config.Config, name string) error {
	group, err := resolveGroup(cfg.Discovery.Group)
	if err != nil {
		return err
	}

	beacon := discovery.Beacon{
		PeerID: name,
		Name:   name,
		Room:   cfg.Network.Room,
	}

	fmt.Printf("announcing %q on %s; press Ctrl+C to stop\n", name, group.String())
	return discovery.Announce(ctx, group, beacon, cfg.Discovery.AnnouncePeriod, slog.Default())
}

func discover(ctx context.Context, cfg config.Config) error {
	group, err := resolveGroup(cfg.Discovery.Group)
	if err != nil {
		return err
	}

	fmt.Printf("listening for peers on %s; press Ctrl+C to stop\n", group.String())
	return discovery.Listen(ctx, group, "", func(beacon discovery.Beacon, addr net.UDPAddr) {
		fmt.Printf("found peer %q (room %q) at %s\n", beacon.Name, beacon.Room, addr.String())
	})
}

func resolveGroup(group string) (net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", group)
	if err != nil {
		return net.UDPAddr{}, fmt.Errorf("invalid discovery group %q: %w", group, err)
	}
	return *addr, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("use param: 'demo', 'announce <name>' or 'discover'")
		return
	}

	cfg, err := config.Load(os.Getenv("PRESENCE_CONFIG"))
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return
	}

	ctx, cancelFn := context.WithCancel(context.Background())

	go func() {
		signalStop := make(chan os.Signal, 1)
		signal.Notify(signalStop, syscall.SIGINT, syscall.SIGTERM)

		defer func() {
			signal.Stop(signalStop)
			cancelFn()
		}()

		<-signalStop
	}()

	switch os.Args[1] {
	case "demo":
		err = demo(ctx, cfg)
	case "announce":
		if len(os.Args) != 3 {
			fmt.Println("use: announce <name>")
			return
		}
		err = announce(ctx, cfg, os.Args[2])
	case "discover":
		err = discover(ctx, cfg)
	default:
		fmt.Println("supported value of the mandatory param: 'demo', 'announce' or 'discover'")
		return
	}

	if err != nil && ctx.Err() == nil {
		fmt.Printf("error: %v\n", err)
	}
}
