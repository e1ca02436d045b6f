package external

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"golang.org/x/sync/errgroup"

	"github.com/theSkullX/packages-modules-Connectivity/mdns"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/registry"
	"github.com/theSkullX/packages-modules-Connectivity/mdns/repository"
)

// AddressPollInterval is how often Driver re-reads its
// InterfaceAddressProvider looking for link address changes.
const AddressPollInterval = 30 * time.Second

// command is a unit of work executed on Driver's single owner goroutine,
// satisfying the repository's "caller serializes" contract from spec.md
// section 5.
type command interface {
	execute(ctx context.Context, d *Driver)
}

// Driver is a reference implementation of the external collaborators
// spec.md section 4.6 describes. It owns no repository lock — the
// repository has none — but serializes every call onto one goroutine, and
// drives the probe/announce/exit lifecycle of each registration using
// timers scheduled the way the teacher library's Responder.schedule does.
//
// Driver never binds a multicast socket itself; Transport is supplied by
// the caller.
type Driver struct {
	Repo      *repository.Repository
	Transport PacketTransport
	Addresses InterfaceAddressProvider
	Conflicts ConflictObserver
	Stop      StopNotifier
	Logger    logging.Logger

	commands chan command
	done     chan struct{}
}

// New returns a Driver ready to Run.
func New(repo *repository.Repository, transport PacketTransport, addrs InterfaceAddressProvider) *Driver {
	logger := repo.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Driver{
		Repo:      repo,
		Transport: transport,
		Addresses: addrs,
		Logger:    logger,
		commands:  make(chan command),
		done:      make(chan struct{}),
	}
}

// Run processes incoming packets and drives scheduled work until ctx is
// canceled or an unrecoverable transport error occurs.
func (d *Driver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.receiveLoop(ctx)
	})

	if d.Addresses != nil {
		g.Go(func() error {
			return d.addressPollLoop(ctx)
		})
	}

	g.Go(func() error {
		return d.commandLoop(ctx)
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// receiveLoop pipes packets read from Transport into the command queue.
func (d *Driver) receiveLoop(ctx context.Context) error {
	for {
		pkt, src, err := d.Transport.Receive()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case d.commands <- &handleIncoming{pkt, src}:
		}
	}
}

// addressPollLoop re-reads Addresses every AddressPollInterval and pushes
// any change to the repository.
func (d *Driver) addressPollLoop(ctx context.Context) error {
	ticker := time.NewTicker(AddressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			addrs, err := d.Addresses.Addresses()
			if err != nil {
				logging.Log(d.Logger, "mdns: could not read interface addresses: %s", err)
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d.commands <- &updateAddresses{addrs}:
			}
		}
	}
}

// commandLoop is the owner goroutine: every repository call happens here,
// one at a time, in receipt order.
func (d *Driver) commandLoop(ctx context.Context) error {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-d.commands:
			c.execute(ctx, d)
		}
	}
}

// post enqueues c for execution on the owner goroutine, blocking until
// accepted, ctx is canceled, or the driver has stopped.
func (d *Driver) post(ctx context.Context, c command) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return mdns.NewError(mdns.OperationNotRunning, "driver is no longer running")
	case d.commands <- c:
		return nil
	}
}

// schedule posts c for execution after delay, unless ctx is canceled
// first, mirroring the teacher library's Responder.schedule.
func (d *Driver) schedule(ctx context.Context, delay time.Duration, c command) {
	go func() {
		if err := sleep(ctx, delay); err == nil {
			_ = d.post(ctx, c)
		}
	}()
}

// sendToGroups transmits pkt to both the IPv4 and IPv6 mDNS groups.
func (d *Driver) sendToGroups(pkt *mdns.Packet) {
	if err := d.Transport.Send(pkt, mdns.IPv4Address); err != nil {
		logging.Log(d.Logger, "mdns: send to IPv4 group failed: %s", err)
	}
	if err := d.Transport.Send(pkt, mdns.IPv6Address); err != nil {
		logging.Log(d.Logger, "mdns: send to IPv6 group failed: %s", err)
	}
}

// RegisterService adds a new registration and, if it was not already
// present, drives its probe and announcement sequence.
func (d *Driver) RegisterService(ctx context.Context, id registry.ServiceID, info registry.ServiceInfo, ttlOverride *time.Duration) error {
	return d.post(ctx, &registerService{id, info, ttlOverride})
}

// UpdateService replaces a registration's subtype set.
func (d *Driver) UpdateService(ctx context.Context, id registry.ServiceID, subtypes []string) error {
	return d.post(ctx, &updateService{id, subtypes})
}

// ExitService begins the goodbye sequence for id, removing it once the
// exit packet (if any) has been sent.
func (d *Driver) ExitService(ctx context.Context, id registry.ServiceID) error {
	return d.post(ctx, &exitService{id})
}

// --- commands ---

type registerService struct {
	id          registry.ServiceID
	info        registry.ServiceInfo
	ttlOverride *time.Duration
}

func (c *registerService) execute(ctx context.Context, d *Driver) {
	existing, err := d.Repo.AddService(c.id, c.info, c.ttlOverride)
	if err != nil {
		logging.Log(d.Logger, "mdns: registering service %d failed: %s", int(c.id), err)
		return
	}
	if existing != registry.NotFound {
		// Another registration already owns this (instance, type); no
		// probe/announce sequence to drive for a no-op.
		return
	}

	d.schedule(ctx, randomProbeDelay(), &sendProbe{id: c.id})
}

type updateService struct {
	id       registry.ServiceID
	subtypes []string
}

func (c *updateService) execute(ctx context.Context, d *Driver) {
	if err := d.Repo.UpdateService(c.id, c.subtypes); err != nil {
		logging.Log(d.Logger, "mdns: updating service %d failed: %s", int(c.id), err)
	}
}

type sendProbe struct {
	id    registry.ServiceID
	count int
}

func (c *sendProbe) execute(ctx context.Context, d *Driver) {
	info, err := d.Repo.SetServiceProbing(c.id)
	if err != nil {
		logging.Log(d.Logger, "mdns: probing service %d failed: %s", int(c.id), err)
		return
	}

	d.sendToGroups(&info.Packet)

	c.count++
	if c.count < mdns.ProbeRepeatCount {
		d.schedule(ctx, mdns.ProbeSpacing, c)
		return
	}
	d.schedule(ctx, mdns.ProbeSpacing, &probingSucceeded{id: c.id})
}

type probingSucceeded struct {
	id registry.ServiceID
}

func (c *probingSucceeded) execute(ctx context.Context, d *Driver) {
	info, err := d.Repo.OnProbingSucceeded(c.id)
	if err != nil {
		logging.Log(d.Logger, "mdns: announcing service %d failed: %s", int(c.id), err)
		return
	}

	d.sendToGroups(&info.Packet)
	d.schedule(ctx, 0, &advertisementSent{id: c.id, count: 1})
}

type advertisementSent struct {
	id    registry.ServiceID
	count int
}

func (c *advertisementSent) execute(ctx context.Context, d *Driver) {
	if err := d.Repo.OnAdvertisementSent(c.id, c.count); err != nil {
		logging.Log(d.Logger, "mdns: recording advertisement for service %d failed: %s", int(c.id), err)
		return
	}
	if c.count < mdns.AnnouncementsForActive {
		d.schedule(ctx, mdns.ProbeSpacing, &reannounce{id: c.id, count: c.count})
	}
}

type reannounce struct {
	id    registry.ServiceID
	count int
}

func (c *reannounce) execute(ctx context.Context, d *Driver) {
	info, err := d.Repo.AnnouncementPacket(c.id)
	if err != nil {
		logging.Log(d.Logger, "mdns: re-announcing service %d failed: %s", int(c.id), err)
		return
	}
	d.sendToGroups(&info.Packet)
	d.schedule(ctx, 0, &advertisementSent{id: c.id, count: c.count + 1})
}

type exitService struct {
	id registry.ServiceID
}

func (c *exitService) execute(ctx context.Context, d *Driver) {
	pkt, err := d.Repo.ExitService(c.id)
	if err != nil {
		logging.Log(d.Logger, "mdns: exiting service %d failed: %s", int(c.id), err)
		return
	}
	if pkt != nil {
		d.sendToGroups(pkt)
	}

	d.Repo.RemoveService(c.id)

	if d.Stop != nil && d.Repo.RequestStopWhenInactive() {
		d.Stop.OnStopRequested()
	}
}

type updateAddresses struct {
	addrs []net.IP
}

func (c *updateAddresses) execute(ctx context.Context, d *Driver) {
	d.Repo.UpdateAddresses(c.addrs)
}

type handleIncoming struct {
	pkt *mdns.Packet
	src *net.UDPAddr
}

func (c *handleIncoming) execute(ctx context.Context, d *Driver) {
	now := time.Now()

	if reply, ok := d.Repo.GetReply(c.pkt, c.src, now); ok {
		out := &mdns.Packet{
			Header:     mdns.Header{Flags: mdns.FlagResponse},
			Answers:    reply.Answers,
			Additional: reply.AdditionalAnswers,
		}
		if err := d.Transport.Send(out, reply.Destination); err != nil {
			logging.Log(d.Logger, "mdns: sending reply failed: %s", err)
		}
	}

	if conflicts := d.Repo.GetConflictingServices(c.pkt); len(conflicts) > 0 && d.Conflicts != nil {
		d.Conflicts.OnConflict(conflicts)
	}
}

// randomProbeDelay returns a random delay in [0, 250ms), per RFC 6762
// section 8.1's guidance to avoid synchronized probing when many hosts
// power on together.
func randomProbeDelay() time.Duration {
	return time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
}
