package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/domain/entity"
	"github.com/sangkips/tillpoint-api/internal/domain/repository"
	infraRepo "github.com/sangkips/tillpoint-api/internal/infrastructure/repository"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
	"github.com/sangkips/tillpoint-api/pkg/pagination"
	"github.com/sangkips/tillpoint-api/pkg/utils"
)

// CustomerService handles customer-related operations
type CustomerService struct {
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo repository.CustomerRepository, saleRepo repository.SaleRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo, saleRepo: saleRepo}
}

// CreateCustomerInput represents the create customer input
type CreateCustomerInput struct {
	Name    string
	Phone   string
	Email   *string
	Address *string
}

// UpdateCustomerInput represents the update customer input
type UpdateCustomerInput struct {
	Name    *string
	Phone   *string
	Email   *string
	Address *string
}

var errDuplicatePhone = apperror.NewConflictError("A customer with this phone number already exists")

func (s *CustomerService) ensurePhoneFree(ctx context.Context, phone string, self uuid.UUID) error {
	existing, err := s.customerRepo.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return errDuplicatePhone
	}
	return nil
}

func validPhone(phone string) error {
	if phone == "" {
		return apperror.NewValidationError([]apperror.FieldError{{Field: "phone", Message: "is required"}})
	}
	if len(phone) > maxPhoneLength {
		return apperror.NewValidationError([]apperror.FieldError{{Field: "phone", Message: "is too long"}})
	}
	return nil
}

// CreateCustomer creates a new customer
func (s *CustomerService) CreateCustomer(ctx context.Context, input *CreateCustomerInput) (*entity.Customer, error) {
	phone := utils.NormalizePhone(input.Phone)
	if err := validPhone(phone); err != nil {
		return nil, err
	}
	if err := s.ensurePhoneFree(ctx, phone, uuid.Nil); err != nil {
		return nil, err
	}

	customer := &entity.Customer{
		Name:    strings.TrimSpace(input.Name),
		Phone:   phone,
		Email:   trimmedOrNil(input.Email),
		Address: trimmedOrNil(input.Address),
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		if infraRepo.IsUniqueViolation(err) {
			return nil, errDuplicatePhone
		}
		return nil, err
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*entity.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, apperror.NewNotFoundError("Customer")
	}
	return customer, nil
}

// ListCustomers lists customers matching search on name or phone
func (s *CustomerService) ListCustomers(ctx context.Context, params *pagination.PaginationParams, search string) (*pagination.PaginatedResult[entity.Customer], error) {
	params.Validate()
	customers, total, err := s.customerRepo.List(ctx, params, search)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(customers, pag), nil
}

// UpdateCustomer updates an existing customer
func (s *CustomerService) UpdateCustomer(ctx context.Context, id uuid.UUID, input *UpdateCustomerInput) (*entity.Customer, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Phone != nil {
		phone := utils.NormalizePhone(*input.Phone)
		if err := validPhone(phone); err != nil {
			return nil, err
		}
		if err := s.ensurePhoneFree(ctx, phone, customer.ID); err != nil {
			return nil, err
		}
		customer.Phone = phone
	}
	if input.Name != nil {
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		customer.Email = trimmedOrNil(input.Email)
	}
	if input.Address != nil {
		customer.Address = trimmedOrNil(input.Address)
	}

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		if infraRepo.IsUniqueViolation(err) {
			return nil, errDuplicatePhone
		}
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer that has no sales on record
func (s *CustomerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return err
	}
	n, err := s.customerRepo.CountSales(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.NewConflictError("Customer has sales on record and cannot be deleted")
	}
	return s.customerRepo.Delete(ctx, id)
}

// PurchaseHistory lists the customer's sales, newest first
func (s *CustomerService) PurchaseHistory(ctx context.Context, id uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Sale], error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	params.Validate()
	sales, total, err := s.saleRepo.List(ctx, &repository.SaleFilterParams{
		Pagination: params,
		CustomerID: &id,
	})
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(sales, pag), nil
}
