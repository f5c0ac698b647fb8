/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alexandremahdhaoui/nvp-probe/internal/adapter"
	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
)

var (
	// ErrDiscover wraps every error returned by Discover.
	ErrDiscover = errors.New("discovering controller cluster master")

	// ErrTransport is returned when a controller node could not be reached.
	ErrTransport = adapter.ErrTransport
	// ErrUnexpectedControllerResponse is returned when a controller node answered an unexpected status code.
	ErrUnexpectedControllerResponse = adapter.ErrUnexpectedResponse
	// ErrAuthenticationRejected is returned along with ErrNoMasterFound when every candidate answered 401.
	ErrAuthenticationRejected = errors.New("every candidate host answered 401 unauthorized")
	// ErrNoMasterFound is returned when no candidate host answered as cluster master.
	ErrNoMasterFound = errors.New("no candidate host is the controller cluster master")
	// ErrNoTransportZone is returned when the master is reachable but reports no transport zone.
	ErrNoTransportZone = errors.New("controller cluster master did not return any transport zone")
	// ErrInvalidProbe is returned when the candidate hosts or the probe mode are not usable.
	ErrInvalidProbe = errors.New("invalid discovery parameters")

	errNoCandidates           = errors.New("no candidate hosts")
	errEmptyCandidate         = errors.New("candidate host must not be empty")
	errEmptyTransportZoneUUID = errors.New("transport zone uuid must not be empty")
	errMasterLostSession      = errors.New("master rejected the session after answering as master")

	fmtTriedCandidates = "tried candidates: %s"
	fmtProbingHost     = "probing candidate host %q"
)

// ---------------------------------------------------- INTERFACES -------------------------------------------------- //

// Discovery finds the controller cluster master among candidate hosts and its transport zone.
type Discovery interface {
	// Discover probes hosts in order and returns the first one answering as cluster master, along with the uuid
	// of the first transport zone it lists.
	Discover(ctx context.Context, hosts []string, creds types.Credentials) (types.ProbeResult, error)
}

// DiscoveryOptions configures a Discovery.
type DiscoveryOptions struct {
	// Mode selects how master-ness is decided. Defaults to types.TransportZoneProbeMode.
	Mode types.ProbeMode
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *Metrics
}

// --------------------------------------------------- CONSTRUCTORS ------------------------------------------------- //

// NewDiscovery returns a new Discovery talking to controller nodes through ctrl.
func NewDiscovery(ctrl adapter.Controller, opts DiscoveryOptions) Discovery {
	if opts.Mode == "" {
		opts.Mode = types.TransportZoneProbeMode
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &discovery{
		ctrl:    ctrl,
		mode:    opts.Mode,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// ---------------------------------------------------- DISCOVERY --------------------------------------------------- //

type discovery struct {
	ctrl    adapter.Controller
	mode    types.ProbeMode
	log     *slog.Logger
	metrics *Metrics
}

// master is a candidate host that answered as cluster master.
type master struct {
	session *adapter.Session
	zones   *types.TransportZoneList
}

// -------------------------------------------------------- Discover ------------------------------------------------ //

func (d *discovery) Discover(
	ctx context.Context,
	hosts []string,
	creds types.Credentials,
) (types.ProbeResult, error) {
	log := d.log.With("runID", uuid.NewString(), "mode", string(d.mode))

	result, err := d.discover(ctx, log, hosts, creds)
	d.metrics.observeDiscovery(hosts, result.MasterHost, err)

	if err != nil {
		log.ErrorContext(ctx, "controller discovery failed", "candidates", hosts, "error", err.Error())

		return types.ProbeResult{}, errors.Join(err, ErrDiscover)
	}

	log.InfoContext(ctx, "controller discovery succeeded",
		"master", result.MasterHost,
		"transportZoneUUID", result.TransportZoneUUID,
	)

	return result, nil
}

func (d *discovery) discover(
	ctx context.Context,
	log *slog.Logger,
	hosts []string,
	creds types.Credentials,
) (types.ProbeResult, error) {
	if err := d.validate(hosts); err != nil {
		return types.ProbeResult{}, err
	}

	for _, host := range hosts {
		log.DebugContext(ctx, "probing candidate host", "host", host)

		m, err := d.probe(ctx, host, creds)
		if err != nil {
			return types.ProbeResult{}, errors.Join(err, fmt.Errorf(fmtProbingHost, host))
		}

		if m == nil {
			log.InfoContext(ctx, "candidate host is not the cluster master", "host", host)
			continue
		}

		log.InfoContext(ctx, "found controller cluster master", "host", host)

		zoneUUID, count, err := d.transportZoneUUID(ctx, log, m)
		if err != nil {
			return types.ProbeResult{}, errors.Join(err, fmt.Errorf(fmtProbingHost, host))
		}

		result := types.ProbeResult{
			MasterHost:         host,
			TransportZoneUUID:  zoneUUID,
			TransportZoneCount: count,
		}

		if sessionHost := m.session.Host(); sessionHost != host {
			log.InfoContext(ctx, "controller redirected the session", "host", host, "redirectedTo", sessionHost)
			result.RedirectedTo = sessionHost
		}

		return result, nil
	}

	return types.ProbeResult{}, errors.Join(
		ErrNoMasterFound,
		ErrAuthenticationRejected,
		fmt.Errorf(fmtTriedCandidates, strings.Join(hosts, ", ")),
	)
}

func (d *discovery) validate(hosts []string) error {
	if !d.mode.IsValid() {
		return errors.Join(fmt.Errorf("unknown probe mode %q", d.mode), ErrInvalidProbe)
	}

	if len(hosts) == 0 {
		return errors.Join(errNoCandidates, ErrNoMasterFound, ErrInvalidProbe)
	}

	for _, host := range hosts {
		if strings.TrimSpace(host) == "" {
			return errors.Join(errEmptyCandidate, ErrInvalidProbe)
		}
	}

	return nil
}

// probe returns a nil master and a nil error when host rejects the session with 401.
func (d *discovery) probe(ctx context.Context, host string, creds types.Credentials) (*master, error) {
	session, err := d.ctrl.Login(ctx, host, creds)
	if errors.Is(err, adapter.ErrUnauthorized) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	if d.mode == types.ClusterStatusProbeMode {
		if _, err := d.ctrl.ControlClusterStatus(ctx, session); errors.Is(err, adapter.ErrUnauthorized) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}

		zones, err := d.ctrl.ListTransportZones(ctx, session)
		if errors.Is(err, adapter.ErrUnauthorized) {
			return nil, errors.Join(err, errMasterLostSession, ErrUnexpectedControllerResponse)
		} else if err != nil {
			return nil, err
		}

		return &master{session: session, zones: zones}, nil
	}

	zones, err := d.ctrl.ListTransportZones(ctx, session)
	if errors.Is(err, adapter.ErrUnauthorized) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return &master{session: session, zones: zones}, nil
}

// transportZoneUUID resolves the uuid of the first transport zone listed by the master.
func (d *discovery) transportZoneUUID(ctx context.Context, log *slog.Logger, m *master) (string, int, error) {
	host := m.session.Host()
	count := m.zones.ResultCount

	if count == 0 || len(m.zones.Results) == 0 {
		return "", count, errors.Join(
			ErrNoTransportZone,
			fmt.Errorf("controller %s reported result_count=%d with %d results", host, count, len(m.zones.Results)),
		)
	}

	if count > 1 || len(m.zones.Results) > 1 {
		log.WarnContext(ctx, "controller returned several transport zones, using the first one",
			"host", host,
			"count", count,
			"href", m.zones.Results[0].Href,
		)
		d.metrics.observeAmbiguousTransportZone()
	}

	zone, err := d.ctrl.GetTransportZone(ctx, m.session, m.zones.Results[0].Href)
	if err != nil {
		return "", count, err
	}

	if zone.UUID == "" {
		return "", count, errors.Join(errEmptyTransportZoneUUID, ErrUnexpectedControllerResponse)
	}

	return zone.UUID, count, nil
}
