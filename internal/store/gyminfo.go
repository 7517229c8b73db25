package store

import (
	"context"
	"strings"

	"gym-bot/internal/models"
	"gym-bot/internal/sheets"
)

// GymInfo returns the aggregated configuration tables, cached for the
// store TTL. When they cannot be read a default carrying the configured
// gym name is returned.
func (s *Store) GymInfo(ctx context.Context) models.GymInfo {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()

	if s.info != nil && s.now().Sub(s.infoAt) < s.ttl {
		return *s.info
	}
	if s.backend == nil {
		return models.DefaultGymInfo(s.gymName)
	}

	info, err := s.loadGymInfo(ctx)
	if err != nil {
		s.logger.Warnw("Gym info unavailable", "error", err)
		if s.info != nil {
			return *s.info
		}
		return models.DefaultGymInfo(s.gymName)
	}
	s.info = &info
	s.infoAt = s.now()
	return info
}

func (s *Store) loadGymInfo(ctx context.Context) (models.GymInfo, error) {
	info := models.DefaultGymInfo(s.gymName)

	settings, err := s.backend.Records(ctx, sheets.TableSettings)
	if err != nil {
		return info, err
	}
	kv := make(map[string]string, len(settings))
	for _, r := range settings {
		kv[r.Get("Key")] = r.Get("Value")
	}
	if v := kv["Gym Name"]; v != "" {
		info.GymName = v
	}
	info.Contact = models.Contact{Phone: kv["Phone"], Email: kv["Email"]}
	if v := kv["Mon-Sat Timing"]; v != "" {
		info.Timings.MonSat = v
	}
	if v := kv["Sunday Timing"]; v != "" {
		info.Timings.Sunday = v
	}

	fees, err := s.backend.Records(ctx, sheets.TableFees)
	if err != nil {
		return info, err
	}
	for _, r := range fees {
		if plan := r.Get("Plan Name"); plan != "" {
			info.Fees[models.FeeKey(plan)] = atoi(r.Get("Fee Amount"))
		}
	}

	trainers, err := s.backend.Records(ctx, sheets.TableTrainers)
	if err != nil {
		return info, err
	}
	for _, r := range trainers {
		info.Trainers = append(info.Trainers, models.Trainer{
			Name:      r.Get("Name"),
			Specialty: r.Get("Specialty"),
			Phone:     r.Get("Phone"),
		})
	}

	kb, err := s.backend.Records(ctx, sheets.TableKnowledge)
	if err != nil {
		return info, err
	}
	for _, r := range kb {
		switch strings.ToLower(r.Get("Category")) {
		case "facility":
			info.Facilities = append(info.Facilities, r.Get("Detail"))
		case "rule":
			info.Rules = append(info.Rules, r.Get("Detail"))
		}
	}

	faq, err := s.backend.Records(ctx, sheets.TableFAQ)
	if err != nil {
		return info, err
	}
	for _, r := range faq {
		info.FAQ = append(info.FAQ, models.FAQEntry{Question: r.Get("Question"), Answer: r.Get("Answer")})
	}
	return info, nil
}
