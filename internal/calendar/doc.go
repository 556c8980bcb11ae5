// Package calendar creates events in the user's Google Calendar.
//
// The add-on only ever creates events, from the title and times the model
// extracted from the open message, so the client covers Events.Insert and
// nothing else.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	ev, err := client.CreateEvent(ctx, calendar.PrimaryCalendar, calendar.EventInput{
//	    Summary: "Project sync",
//	    Start:   start,
//	    End:     start.Add(time.Hour),
//	})
package calendar
