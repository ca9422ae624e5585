package complaint_test

import "grievance/backend/internal/apperr"

func isValidation(err error) bool { return apperr.IsValidation(err) }

func isNotFound(err error) bool { return apperr.IsNotFound(err) }
