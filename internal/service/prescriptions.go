package service

import (
	"context"
	"fmt"
	"strings"

	"pharmacare/backend/internal/domain"
	"pharmacare/backend/internal/session"
	"pharmacare/backend/internal/workflow"
)

func (s *Service) CreatePrescription(ctx context.Context, req domain.PrescriptionCreateRequest) (*domain.Prescription, error) {
	if _, err := requireSection(ctx, session.SectionPrescriptions); err != nil {
		return nil, err
	}
	if err := requireAll(
		"prescription_number", req.PrescriptionNumber,
		"patient_name", req.PatientName,
		"doctor_name", req.DoctorName,
	); err != nil {
		return nil, err
	}
	if req.TotalAmountCents < 0 {
		return nil, invalid("total_amount_cents must not be negative")
	}

	now := s.now()
	issued, err := parseOptionalDate("date_issued", req.DateIssued, startOfDay(now))
	if err != nil {
		return nil, err
	}

	medications := make([]domain.Medication, 0, len(req.Medications))
	for i, m := range req.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return nil, invalid("medications[%d].name is required", i)
		}
		if m.Quantity < 0 {
			return nil, invalid("medications[%d].quantity must not be negative", i)
		}
		m.Name = strings.TrimSpace(m.Name)
		medications = append(medications, m)
	}

	created, err := s.repo.CreatePrescription(ctx, domain.Prescription{
		PrescriptionNumber: strings.TrimSpace(req.PrescriptionNumber),
		PatientName:        strings.TrimSpace(req.PatientName),
		DoctorName:         strings.TrimSpace(req.DoctorName),
		DateIssued:         issued,
		Medications:        medications,
		Instructions:       strings.TrimSpace(req.Instructions),
		TotalAmountCents:   req.TotalAmountCents,
		Insurance:          strings.TrimSpace(req.Insurance),
		Status:             workflow.Prescriptions.Initial(),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "prescription.create", "prescription", created.ID, created.PrescriptionNumber)
	return created, nil
}

func (s *Service) GetPrescription(ctx context.Context, id string) (*domain.Prescription, error) {
	if _, err := requireSection(ctx, session.SectionPrescriptions); err != nil {
		return nil, err
	}
	return s.repo.GetPrescription(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, status string, limit int) ([]domain.Prescription, error) {
	if _, err := requireSection(ctx, session.SectionPrescriptions); err != nil {
		return nil, err
	}
	if status != "" && !workflow.Prescriptions.Known(workflow.PrescriptionStatus(status)) {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownStatus, status)
	}
	return s.repo.ListPrescriptions(ctx, status, limit)
}

// UpdatePrescriptionStatus moves a prescription along its workflow.
func (s *Service) UpdatePrescriptionStatus(ctx context.Context, id string, to workflow.PrescriptionStatus) (*domain.Prescription, error) {
	if _, err := requireSection(ctx, session.SectionPrescriptions); err != nil {
		return nil, err
	}
	current, err := s.repo.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Prescriptions.Transition(current.Status, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdatePrescriptionStatus(ctx, id, current.Status, to, s.now())
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "prescription.status", "prescription", id,
		fmt.Sprintf("%s %s -> %s", updated.PrescriptionNumber, current.Status, to))
	return updated, nil
}
