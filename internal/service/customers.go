package service

import (
	"context"
	"net/mail"
	"strings"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
)

func (s *Service) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	if _, err := requireSection(ctx, session.SectionCustomers); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, query)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if _, err := requireSection(ctx, session.SectionCustomers); err != nil {
		return nil, err
	}
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	if _, err := requireSection(ctx, session.SectionCustomers); err != nil {
		return nil, err
	}
	if err := requireAll("name", req.Name, "email", req.Email, "phone", req.Phone); err != nil {
		return nil, err
	}
	if err := validEmail(req.Email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.DateOfBirth) != "" {
		if _, err := parseDate("date_of_birth", req.DateOfBirth); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:             strings.TrimSpace(req.Name),
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Address:          strings.TrimSpace(req.Address),
		DateOfBirth:      strings.TrimSpace(req.DateOfBirth),
		Gender:           strings.TrimSpace(req.Gender),
		EmergencyContact: strings.TrimSpace(req.EmergencyContact),
		Allergies:        defaultString(req.Allergies, "None"),
		RegistrationDate: startOfDay(s.now()),
		Status:           domain.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "customer.create", "customer", created.ID, created.Name)
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	if _, err := requireSection(ctx, session.SectionCustomers); err != nil {
		return nil, err
	}
	current, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Name != nil {
		next.Name = trimPtr(req.Name)
	}
	if req.Email != nil {
		next.Email = trimPtr(req.Email)
	}
	if req.Phone != nil {
		next.Phone = trimPtr(req.Phone)
	}
	if req.Address != nil {
		next.Address = trimPtr(req.Address)
	}
	if req.EmergencyContact != nil {
		next.EmergencyContact = trimPtr(req.EmergencyContact)
	}
	if req.Allergies != nil {
		next.Allergies = trimPtr(req.Allergies)
	}
	if req.Status != nil {
		status := trimPtr(req.Status)
		if status != domain.StatusActive && status != domain.StatusInactive {
			return nil, invalid("status must be Active or Inactive")
		}
		next.Status = status
	}

	if err := requireAll("name", next.Name, "email", next.Email, "phone", next.Phone); err != nil {
		return nil, err
	}
	if err := validEmail(next.Email); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateCustomer(ctx, next)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "customer.update", "customer", id, updated.Name)
	return updated, nil
}

func validEmail(raw string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return invalid("email is not a valid address")
	}
	return nil
}
