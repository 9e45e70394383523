package vault

import (
	"errors"
	"net/http"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *vault.ResponseError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	// Sadly we can just get a string from the api.
	return strings.Contains(err.Error(), "no secret found")
}
