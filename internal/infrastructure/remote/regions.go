package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/storefront/checkout/internal/domain/address"
)

// Regions is the public province/district/ward directory
type Regions struct {
	client *Client
}

// NewRegions creates a Regions directory on top of client
func NewRegions(client *Client) *Regions {
	return &Regions{client: client}
}

// regionCode accepts codes served either as numbers or as strings
type regionCode string

func (c *regionCode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = regionCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = regionCode(n.String())
	return nil
}

type wireRegion struct {
	Code regionCode `json:"code"`
	Name string     `json:"name"`
}

func toRegions(in []wireRegion) []address.Region {
	out := make([]address.Region, 0, len(in))
	for _, w := range in {
		out = append(out, address.Region{Code: string(w.Code), Name: strings.TrimSpace(w.Name)})
	}
	return out
}

var depth2 = url.Values{"depth": {"2"}}

// Provinces lists every province
func (r *Regions) Provinces(ctx context.Context) ([]address.Region, error) {
	var resp []wireRegion
	if err := r.client.Do(ctx, Request{
		Op:     "getProvinces",
		Method: http.MethodGet,
		Path:   "/p/",
	}, &resp); err != nil {
		return nil, err
	}
	return toRegions(resp), nil
}

// Districts lists the districts of a province
func (r *Regions) Districts(ctx context.Context, provinceCode string) ([]address.Region, error) {
	var resp struct {
		Districts []wireRegion `json:"districts"`
	}
	if err := r.client.Do(ctx, Request{
		Op:     "getDistricts",
		Method: http.MethodGet,
		Path:   "/p/" + url.PathEscape(provinceCode),
		Query:  depth2,
	}, &resp); err != nil {
		return nil, err
	}
	return toRegions(resp.Districts), nil
}

// Wards lists the wards of a district
func (r *Regions) Wards(ctx context.Context, districtCode string) ([]address.Region, error) {
	var resp struct {
		Wards []wireRegion `json:"wards"`
	}
	if err := r.client.Do(ctx, Request{
		Op:     "getWards",
		Method: http.MethodGet,
		Path:   "/d/" + url.PathEscape(districtCode),
		Query:  depth2,
	}, &resp); err != nil {
		return nil, err
	}
	return toRegions(resp.Wards), nil
}
