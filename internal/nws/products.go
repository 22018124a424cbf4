package nws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

const (
	ProductDiscussion    = "AFD" // Area Forecast Discussion
	ProductHazardOutlook = "HWO" // Hazardous Weather Outlook
)

var errNoProduct = errors.New("no product issued")

type productListResponse struct {
	Graph []struct {
		ID  string `json:"@id"`
		Key string `json:"id"`
	} `json:"@graph"`
}

type productResponse struct {
	ID            string `json:"id"`
	ProductCode   string `json:"productCode"`
	IssuingOffice string `json:"issuingOffice"`
	IssuanceTime  string `json:"issuanceTime"`
	ProductText   string `json:"productText"`
}

// LatestProduct returns the most recent product of productType issued by
// the configured office, or nil when none can be fetched.
func (c *Client) LatestProduct(ctx context.Context, productType string) *models.Product {
	p, err := c.fetchLatestProduct(ctx, productType)
	if err != nil {
		c.degrade("product_"+strings.ToLower(productType), err)
		return nil
	}
	return p
}

func (c *Client) Discussion(ctx context.Context) *models.Product {
	return c.LatestProduct(ctx, ProductDiscussion)
}

func (c *Client) HazardOutlook(ctx context.Context) *models.Product {
	return c.LatestProduct(ctx, ProductHazardOutlook)
}

func (c *Client) fetchLatestProduct(ctx context.Context, productType string) (*models.Product, error) {
	listURL := fmt.Sprintf("%s/products/types/%s/locations/%s", c.baseURL, productType, c.office)

	var list productListResponse
	if err := c.getJSON(ctx, listURL, &list); err != nil {
		return nil, err
	}
	if len(list.Graph) == 0 {
		return nil, errNoProduct
	}

	latest := list.Graph[0]
	productURL := latest.ID
	if productURL == "" && latest.Key != "" {
		productURL = c.baseURL + "/products/" + latest.Key
	}
	if productURL == "" {
		return nil, errNoProduct
	}
	if !strings.HasPrefix(productURL, "http://") && !strings.HasPrefix(productURL, "https://") {
		productURL = c.baseURL + "/" + strings.TrimLeft(productURL, "/")
	}

	var data productResponse
	if err := c.getJSON(ctx, productURL, &data); err != nil {
		return nil, err
	}

	return &models.Product{
		ID:           data.ID,
		Type:         productType,
		Office:       c.office,
		IssuanceTime: parseTime(data.IssuanceTime),
		IssuanceRaw:  data.IssuanceTime,
		Text:         data.ProductText,
	}, nil
}
