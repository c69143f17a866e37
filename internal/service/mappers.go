package service

import (
	"rentalhub/internal/dto"
	"rentalhub/internal/model"
)

func clientToResponse(c *model.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID: c.ID, FirstName: c.FirstName, LastName: c.LastName,
		Email: c.Email, Phone: c.Phone, CompanyName: c.CompanyName,
		TaxID: c.TaxID, Address: c.Address, Notes: c.Notes, CreatedAt: c.CreatedAt,
	}
}

func attractionToResponse(a *model.Attraction) dto.AttractionResponse {
	return dto.AttractionResponse{
		ID: a.ID, Name: a.Name, Description: a.Description,
		Width: a.Width, Length: a.Length, Height: a.Height,
		DailyPrice: a.DailyPrice, Active: a.Active,
	}
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
		Active: u.Active, CreatedAt: u.CreatedAt,
	}
}

func reservationToResponse(r *model.Reservation) *dto.ReservationResponse {
	resp := &dto.ReservationResponse{
		ID:            r.ID,
		Code:          r.Code,
		ClientID:      r.ClientID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Status:        r.Status,
		TotalPrice:    r.TotalPrice,
		Notes:         r.Notes,
		CancelledAt:   r.CancelledAt,
		CancelledByID: r.CancelledByID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Attractions:   make([]dto.ReservationLineResponse, 0, len(r.Items)),
		AssignedUsers: make([]dto.UserSummary, 0, len(r.AssignedUsers)),
		Invoices:      make([]dto.InvoiceSummary, 0, len(r.Invoices)),
	}
	if r.Client != nil {
		c := clientToResponse(r.Client)
		resp.Client = &c
	}
	for _, it := range r.Items {
		line := dto.ReservationLineResponse{ID: it.ID, AttractionID: it.AttractionID, Quantity: it.Quantity}
		if it.Attraction != nil {
			a := attractionToResponse(it.Attraction)
			line.Attraction = &a
		}
		resp.Attractions = append(resp.Attractions, line)
	}
	for _, u := range r.AssignedUsers {
		resp.AssignedUsers = append(resp.AssignedUsers, dto.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	for _, inv := range r.Invoices {
		resp.Invoices = append(resp.Invoices, dto.InvoiceSummary{
			ID: inv.ID, Number: inv.Number, IssueDate: inv.IssueDate, Amount: inv.Amount, Status: inv.Status,
		})
	}
	return resp
}

func calendarEntry(r *model.Reservation) dto.CalendarEntry {
	e := dto.CalendarEntry{ID: r.ID, StartDate: r.StartDate, EndDate: r.EndDate, Status: r.Status}
	if r.Client != nil {
		e.Client = dto.CalendarClient{FirstName: r.Client.FirstName, LastName: r.Client.LastName}
	}
	return e
}

func invoiceToResponse(inv *model.Invoice) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		ReservationID:    inv.ReservationID,
		ClientID:         inv.ClientID,
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate,
		Amount:           inv.Amount,
		Status:           inv.Status,
		IsCompanyInvoice: inv.IsCompanyInvoice,
		CompanyName:      inv.CompanyName,
		TaxID:            inv.TaxID,
		PDFURL:           inv.PDFURL,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	if inv.Reservation != nil {
		resp.Reservation = &dto.InvoiceReservation{
			ID: inv.Reservation.ID, Code: inv.Reservation.Code,
			StartDate: inv.Reservation.StartDate, EndDate: inv.Reservation.EndDate,
			Status: inv.Reservation.Status,
		}
	}
	if inv.Client != nil {
		c := clientToResponse(inv.Client)
		resp.Client = &c
	}
	return resp
}
