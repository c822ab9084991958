/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabsdk

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// isTimeout returns true if the error indicates that the peer did not respond in time
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if s, ok := status.FromError(err); ok {
		switch s.Group {
		case status.ClientStatus:
			return s.Code == status.Timeout.ToInt32()
		case status.GRPCTransportStatus:
			return s.Code == int32(codes.DeadlineExceeded)
		}
	}

	if s, ok := grpcstatus.FromError(errors.Cause(err)); ok {
		return s.Code() == codes.DeadlineExceeded
	}

	return false
}
