package client

import (
	"context"
	"fmt"
	"net/url"

	dto "github.com/turtacn/helmkit/pkg/types/notation"
)

// MonomersClient reads the server's effective monomer library.
type MonomersClient struct {
	client *Client
}

// List returns the monomers of polymerType (PEPTIDE, RNA, CHEM), or all
// when polymerType is empty.
func (m *MonomersClient) List(ctx context.Context, polymerType string) ([]dto.Monomer, error) {
	path := apiPrefix + "/monomers"
	if polymerType != "" {
		path += "?" + url.Values{"type": {polymerType}}.Encode()
	}
	var out dto.MonomerList
	if err := m.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (m *MonomersClient) Get(ctx context.Context, polymerType, symbol string) (*dto.Monomer, error) {
	if polymerType == "" || symbol == "" {
		return nil, fmt.Errorf("monomers: polymer type and symbol are required")
	}
	var out dto.Monomer
	path := fmt.Sprintf("%s/monomers/%s/%s", apiPrefix, url.PathEscape(polymerType), url.PathEscape(symbol))
	if err := m.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
